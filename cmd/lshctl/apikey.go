package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/postgres"
	"github.com/spf13/cobra"
)

var (
	keyName      string
	keyExpiresIn time.Duration
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys for the detector's write endpoints",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API key",
	Example: `  lshctl apikey create --name grader --expires-in 720h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyName == "" {
			return fmt.Errorf("--name is required")
		}
		var expiresAt *time.Time
		if keyExpiresIn > 0 {
			t := time.Now().Add(keyExpiresIn).UTC()
			expiresAt = &t
		}

		return withKeys(cmd.Context(), func(ctx context.Context, keys apikey.Keys) error {
			raw, info, err := keys.Create(ctx, keyName, expiresAt)
			if err != nil {
				return err
			}
			fmt.Println("API key created. It cannot be retrieved again.")
			fmt.Println()
			fmt.Printf("  Key:     %s\n", raw)
			fmt.Printf("  ID:      %s\n", info.ID)
			fmt.Printf("  Name:    %s\n", info.Name)
			if info.ExpiresAt != nil {
				fmt.Printf("  Expires: %s\n", info.ExpiresAt.Format(time.RFC3339))
			} else {
				fmt.Println("  Expires: never")
			}
			return nil
		})
	},
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeys(cmd.Context(), func(ctx context.Context, keys apikey.Keys) error {
			if err := keys.Revoke(ctx, args[0]); err != nil {
				return fmt.Errorf("revoking %s: %w", args[0], err)
			}
			fmt.Printf("API key %s revoked.\n", args[0])
			return nil
		})
	},
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeys(cmd.Context(), func(ctx context.Context, keys apikey.Keys) error {
			list, err := keys.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No active API keys.")
				return nil
			}
			fmt.Printf("%-36s  %-20s  %s\n", "ID", "Name", "Expires")
			for _, k := range list {
				expires := "never"
				if k.ExpiresAt != nil {
					expires = k.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Printf("%-36s  %-20s  %s\n", k.ID, k.Name, expires)
			}
			fmt.Printf("\nTotal: %d active key(s)\n", len(list))
			return nil
		})
	},
}

func init() {
	apikeyCreateCmd.Flags().StringVar(&keyName, "name", "", "name for the api key")
	apikeyCreateCmd.Flags().DurationVar(&keyExpiresIn, "expires-in", 0, "expiry duration, e.g. 720h (never expires when 0)")
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyRevokeCmd, apikeyListCmd)
}

// withKeys connects to the configured PostgreSQL and runs fn against the
// key store.
func withKeys(parent context.Context, fn func(ctx context.Context, keys apikey.Keys) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	db, err := postgres.New(settings.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	return fn(ctx, apikey.NewPostgres(db))
}
