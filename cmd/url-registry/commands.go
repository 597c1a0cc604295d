package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/url-registry/internal/app"
	"github.com/vadimbarashkov/url-registry/internal/client"
	"github.com/vadimbarashkov/url-registry/internal/config"
)

const configPathEnv = "CONFIG_PATH"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "url-registry",
		Short:         "URL shortening service with click analytics and expiration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newClientCmd())

	return rootCmd
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to the YAML config file (defaults to $"+configPathEnv+")")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path == "" {
		return nil, fmt.Errorf("config path is not set: use --config or $%s", configPathEnv)
	}

	return config.Load(path)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return app.Run(cmd.Context(), cfg, app.NewLogger(cfg))
		},
	}
	addConfigFlag(cmd)

	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create indexes (mongo) or apply SQL migrations (postgres)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := app.Migrate(cmd.Context(), cfg, app.NewLogger(cfg)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s storage is up to date\n", cfg.Storage.Driver)
			return nil
		},
	}
	addConfigFlag(cmd)

	return cmd
}

func newClientCmd() *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Talk to a running server",
	}
	clientCmd.PersistentFlags().StringP("server-url", "u", "http://localhost:8080", "server URL")

	shortenCmd := &cobra.Command{
		Use:   "shorten [URL]",
		Short: "Create a short URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server-url")
			alias, _ := cmd.Flags().GetString("alias")

			req := client.ShortenRequest{
				OriginalURL: args[0],
				CustomAlias: alias,
			}
			if cmd.Flags().Changed("expires-in-days") {
				days, _ := cmd.Flags().GetInt("expires-in-days")
				req.ExpiresInDays = &days
			}

			resp, err := client.New(serverURL).Shorten(cmd.Context(), req)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	shortenCmd.Flags().String("alias", "", "custom alias used as the short code")
	shortenCmd.Flags().Int("expires-in-days", 0, "days until the short URL expires")

	analyticsCmd := &cobra.Command{
		Use:   "analytics [SHORT_CODE]",
		Short: "Show click analytics of a short URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server-url")

			a, err := client.New(serverURL).Analytics(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Original URL: %s\n", a.OriginalURL)
			fmt.Fprintf(out, "Short URL:    %s\n", a.ShortURL)
			fmt.Fprintf(out, "Clicks:       %d\n", a.Clicks)
			fmt.Fprintf(out, "Created At:   %s\n", a.CreatedAt.Format(time.RFC3339))
			if a.ExpiresAt != nil {
				fmt.Fprintf(out, "Expires At:   %s\n", a.ExpiresAt.Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "Expires At:   never")
			}

			return nil
		},
	}

	clientCmd.AddCommand(shortenCmd, analyticsCmd)

	return clientCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
