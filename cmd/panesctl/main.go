package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"panes/internal/config"
	"panes/internal/logging"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "panesctl",
	Short:   "Operator tooling for the panes service",
	Long: `panesctl runs maintenance tasks against the stores configured for the
panes API. It reads the same environment variables as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}
		logging.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel))
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: LOG_LEVEL)")

	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
