package cmd

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	configPath string
	verbose    bool

	// configFS is swapped for an in-memory filesystem in tests.
	configFS afero.Fs = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "mjuauth",
	Short: "mjuauth logs in to Myongji University portals through the SSO gateway",
	Long: `A client and HTTP API for the Myongji University SSO gateway. It logs in to
MSI, LMS, Portal, Library and Capstone and reads the student card and
enrollment change log from MSI.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
