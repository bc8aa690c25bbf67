package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/autoshow/internal/api/response"
	"github.com/kiranshivaraju/autoshow/internal/cache"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/kiranshivaraju/autoshow/pkg/models"
)

// ResultCacheTTL is how long a fetched result stays in the cache. Results are
// written once and never change.
const ResultCacheTTL = 10 * time.Minute

// ResultReader loads persisted results.
type ResultReader interface {
	GetResult(ctx context.Context, id uuid.UUID) (*models.Result, error)
}

// BlobCache is the subset of cache.Cache used for result read-through.
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NewGetResultHandler returns an http.HandlerFunc for GET /api/v1/results/{resultID}.
// c may be nil, in which case every request goes to the store.
func NewGetResultHandler(results ResultReader, c BlobCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "resultID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "resultID must be a valid UUID", nil)
			return
		}

		if res, ok := cachedResult(r.Context(), c, id); ok {
			response.JSON(w, res)
			return
		}

		res, err := results.GetResult(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Result not found", nil)
				return
			}
			slog.Error("loading result", "error", err, "result_id", id)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		if c != nil {
			if raw, err := json.Marshal(res); err == nil {
				if err := c.Set(r.Context(), cache.ResultKey(id), raw, ResultCacheTTL); err != nil {
					slog.Warn("caching result", "error", err, "result_id", id)
				}
			}
		}

		response.JSON(w, res)
	}
}

func cachedResult(ctx context.Context, c BlobCache, id uuid.UUID) (*models.Result, bool) {
	if c == nil {
		return nil, false
	}
	raw, ok, err := c.Get(ctx, cache.ResultKey(id))
	if err != nil {
		slog.Warn("reading result from cache", "error", err, "result_id", id)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res models.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}
