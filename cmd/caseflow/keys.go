package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/caseflow/internal/apikey"
	"github.com/kiranshivaraju/caseflow/internal/config"
	"github.com/kiranshivaraju/caseflow/internal/store"
	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// keyCreator is the store method keys create needs.
type keyCreator interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}
	cmd.AddCommand(newKeysCreateCmd())
	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	var (
		name        string
		scopes      []string
		databaseURL string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Long: `Generates a new API key, stores its bcrypt hash, and prints the raw key.
The raw key cannot be recovered later. Use this to bootstrap the first
admin key; further keys can be created through the admin API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("a database URL is required (--database-url or DATABASE_URL)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := store.Connect(ctx, config.DatabaseConfig{
				URL:             databaseURL,
				MaxOpenConns:    2,
				MaxIdleConns:    1,
				ConnMaxLifetime: time.Minute,
			})
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			return createKey(ctx, store.NewPostgresStore(pool), name, scopes, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "key name (required)")
	f.StringSliceVar(&scopes, "scope", []string{models.ScopeProcess}, "scopes to grant (process, admin)")
	f.StringVar(&databaseURL, "database-url", "", "Postgres connection URL (default $DATABASE_URL)")
	cmd.MarkFlagRequired("name")

	return cmd
}

func createKey(ctx context.Context, keys keyCreator, name string, scopes []string, out io.Writer) error {
	for _, s := range scopes {
		if s != models.ScopeProcess && s != models.ScopeAdmin {
			return fmt.Errorf("unknown scope %q", s)
		}
	}

	raw, key, err := apikey.Generate(name, scopes)
	if err != nil {
		return err
	}
	if err := keys.CreateAPIKey(ctx, key); err != nil {
		return fmt.Errorf("storing key: %w", err)
	}

	fmt.Fprintf(out, "id:     %s\n", key.ID)
	fmt.Fprintf(out, "name:   %s\n", key.Name)
	fmt.Fprintf(out, "scopes: %s\n", strings.Join(key.Scopes, ","))
	fmt.Fprintf(out, "key:    %s\n", raw)
	return nil
}
