package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipwire-dev/slipwire/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
