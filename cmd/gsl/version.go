package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openciq/gsl/protocol"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gsl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gsl %s (device protocol %d.%d)\n",
			version, protocol.HostProtocolMajor, protocol.HostProtocolMinor)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
