package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"greetd/internal/config"
	"greetd/internal/paths"
)

var (
	configFormat    string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage greetd configuration",
	Long:  "View and manage greetd configuration stored in .greetd/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the effective configuration: defaults, overlaid by
.greetd/config.json, overlaid by GREETD_* environment variables.
Passwords are masked.

Examples:
  greetd config show                # JSON
  greetd config show --format toml
  greetd config show --format yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long:  "Write the default configuration to .greetd/config.json under the root directory.",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "json", "Output format (json, toml, yaml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := encode(cfg.Redacted(), OutputFormat(strings.ToLower(configFormat)))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := paths.GetRoot(rootFlag)
	if err != nil {
		return err
	}

	path := paths.GetConfigPath(root)
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
