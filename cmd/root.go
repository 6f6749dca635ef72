package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags.
var Version = "0.1.0"

var cfgPath string

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "presale",
	Short: "Private token presale controller",
	Long: `presale runs a whitelisted token presale.

  Investors pay in wei, receive tokens at a fixed rate into the lock wallet,
  and the sale enforces a hard cap and a minimum purchase. The owner manages
  the whitelist and can pause, unpause or close the sale.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// PRESALE_CONFIG env var overrides the default --config value.
	cfgPath = os.Getenv("PRESALE_CONFIG")

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "config file (default: presale.json)")
	rootCmd.AddCommand(serveCmd)
}
