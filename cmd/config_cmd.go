package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davidschlachter/lychnos/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Database:      %s\n", config.DBPath(cfg))
	fmt.Printf("    Tax category:  %s\n", cfg.General.TaxCategory)
	if cfg.General.Location != "" {
		fmt.Printf("    Time zone:     %s\n", cfg.General.Location)
	} else {
		fmt.Println("    Time zone:     system")
	}
	fmt.Printf("    Log level:     %s\n", cfg.General.LogLevel)
	fmt.Println()

	fmt.Println("  [Firefly]")
	if u := config.GetFireflyURL(cfg); u != "" {
		fmt.Printf("    URL:   %s\n", u)
	} else {
		fmt.Println("    URL:   not configured")
	}
	if tok := config.GetFireflyToken(cfg); tok != "" {
		fmt.Printf("    Token: %s\n", maskToken(tok))
	} else {
		fmt.Println("    Token: not configured")
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh:     %v\n", cfg.TUI.AutoRefresh)
	fmt.Printf("    Refresh interval: %ds\n", cfg.TUI.RefreshIntervalSec)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.IntervalSec)
	fmt.Println()

	if err := config.Validate(cfg); err != nil {
		fmt.Printf("  %v\n\n", err)
	}
	fmt.Println("  Run `lychnos setup` to reconfigure.")
	return nil
}

func maskToken(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
