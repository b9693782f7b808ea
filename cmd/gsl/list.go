package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the Connect IQ apps installed on the watch",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Disconnect()

		apps, err := s.ListInstalled(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(formatter.Format(apps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
