package cmd

import (
	"fmt"

	"github.com/entropy-labs/rngpool/internal/version"
	"github.com/spf13/cobra"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of rngpool",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rngpool %s (commit %s)\n", version.GetVersion(), version.GetCommit())
	},
}
