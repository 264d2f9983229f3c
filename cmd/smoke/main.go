package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rpggio/tasklane/internal/client"
	"github.com/rpggio/tasklane/internal/smoke"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
	opts    smoke.Options
)

// rootCmd runs the smoke check against a running server
var rootCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run the end-to-end smoke check against a tasklane server",
	Long: `Run the end-to-end smoke check against a tasklane server.

Steps:
  1. Register a user
  2. Create an organization
  3. Fetch the workspace hierarchy
  4. Create a task in the first list
  5. List the tasks of that list
  6. Create a second list
  7. Move the task into the second list at position 500`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		_, err := smoke.Run(ctx, client.New(baseURL), cmd.OutOrStdout(), opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "smoke check passed")
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&baseURL, "url", envOr("TASKLANE_URL", "http://localhost:8080"), "Server base URL (or set TASKLANE_URL)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	rootCmd.Flags().StringVar(&opts.Email, "email", "", "Account email (default: generated)")
	rootCmd.Flags().StringVar(&opts.Password, "password", "", "Account password (default: generated)")
	rootCmd.Flags().StringVar(&opts.DisplayName, "display-name", "", "Account display name")
	rootCmd.Flags().StringVar(&opts.OrgName, "org", "", "Organization name (default: generated)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
