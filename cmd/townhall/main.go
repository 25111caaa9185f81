// Command townhall runs the community events server and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// @title Townhall API
// @version 1.0
// @description Event RSVPs, paid contributions and mailing lists.
// @BasePath /
func main() {
	rootCmd := &cobra.Command{
		Use:           "townhall",
		Short:         "Townhall - events, RSVPs and member email",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
