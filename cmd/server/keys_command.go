package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/autoshow/internal/api/middleware"
	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/kiranshivaraju/autoshow/pkg/models"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// apiKeyPrefix marks raw keys so they are recognisable in logs and configs.
const apiKeyPrefix = "as_"

func newKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	keysCmd.AddCommand(newKeysCreateCommand())
	return keysCmd
}

func newKeysCreateCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := store.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer st.Close()

			raw, key, err := newAPIKey(name)
			if err != nil {
				return err
			}
			if err := st.CreateAPIKey(cmd.Context(), key); err != nil {
				if errors.Is(err, store.ErrDuplicateKey) {
					return fmt.Errorf("an API key named %q already exists", name)
				}
				return fmt.Errorf("create api key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created API key %q (id %s)\n", name, key.ID)
			fmt.Fprintln(out, raw)
			fmt.Fprintln(out, "Store this key now. It cannot be shown again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable name for the key")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// newAPIKey returns the raw key and its storable record.
func newAPIKey(name string) (string, *models.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	raw := apiKeyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash api key: %w", err)
	}

	return raw, &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:mw.KeyPrefixLen],
		CreatedAt: time.Now().UTC(),
	}, nil
}
