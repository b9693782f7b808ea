package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Connect to the watch and print its identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Disconnect()

		id := s.Identity()
		fmt.Print(formatter.Format(struct {
			Model      string
			PartNumber string
			UnitID     uint32
			Firmware   string
			Protocol   string
		}{
			Model:      id.Model,
			PartNumber: id.PartNumber,
			UnitID:     id.UnitID,
			Firmware:   id.FirmwareVersion(),
			Protocol:   id.ProtocolVersion(),
		}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(identifyCmd)
}
