package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/roomservice"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of roomservice",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "roomservice version %s\n", strings.TrimSpace(roomservice.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
