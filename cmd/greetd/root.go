package main

import (
	stderrors "errors"
	"log/slog"

	"github.com/spf13/cobra"

	"greetd/internal/config"
	"greetd/internal/errors"
	"greetd/internal/paths"
	"greetd/internal/slogutil"
	"greetd/internal/version"
)

var (
	// rootFlag is the CLI --root flag value
	rootFlag  string
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "greetd",
	Short: "greetd - greeting backend",
	Long: `greetd serves a static greeting over HTTP. At startup it also builds a
database connection pool and a cache client from configuration; neither is
used by requests, but both are health-checked by "greetd doctor".`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("greetd version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Directory holding .greetd/config.json (default: $GREETD_ROOT or the working directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
}

// levelOverride returns the log level requested on the command line, or
// nil when config should decide.
func levelOverride() *slog.Level {
	level, ok := slogutil.LevelFromVerbosity(verbosity, quiet)
	if !ok {
		return nil
	}
	return &level
}

// loadConfig resolves the root directory and loads its configuration.
// Precedence: GREETD_* env > config.json > defaults
func loadConfig() (string, *config.Config, error) {
	root, err := paths.GetRoot(rootFlag)
	if err != nil {
		return "", nil, err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return "", nil, errors.New(errors.ConfigInvalid, "failed to load config", err)
	}
	return root, cfg, nil
}

// validateConfig wraps validation failures in a coded error.
func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		var cfgErr *config.ConfigError
		if stderrors.As(err, &cfgErr) {
			return errors.New(errors.ConfigInvalid, "invalid configuration", err).WithDetails(map[string]string{
				"field": cfgErr.Field,
			})
		}
		return errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}
	return nil
}
