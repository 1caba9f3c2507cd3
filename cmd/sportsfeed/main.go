// Command sportsfeed browses ESPN sports, leagues, news and scores through a
// resolver that falls back to public relays when the API is not reachable
// directly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Vodeneev/sportsfeed/internal/pkg/config"
	"github.com/Vodeneev/sportsfeed/internal/pkg/logging"
)

const serviceName = "sportsfeed"

var (
	configPath string
	jsonOutput bool
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sportsfeed",
	Short: "ESPN sports, leagues, news and scores with relay fallback",
	Long: "sportsfeed reads the public ESPN site API. Every request is tried directly first and then " +
		"through an ordered chain of CORS relays until one of them answers.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (empty = built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (DEBUG, INFO, WARN, ERROR)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if configPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if _, err := logging.SetupLoggerTo(&cfg.Logging, serviceName, cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
