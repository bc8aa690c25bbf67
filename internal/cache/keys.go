package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobProgressKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:progress:%s", jobID)
}

func ResultKey(resultID uuid.UUID) string {
	return fmt.Sprintf("result:%s", resultID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
