package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List local serial ports a watch could be attached to",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.GetPortsList()
		if err != nil {
			return fmt.Errorf("enumerating serial ports: %w", err)
		}
		fmt.Print(formatter.Format(ports))
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List watch models known to the Connect IQ store",
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := storeClient().DeviceTypes(cmd.Context())
		if err != nil {
			return err
		}

		type modelRow struct {
			Name       string
			PartNumber string
			URLName    string
		}
		rows := make([]modelRow, 0, len(types))
		for _, dt := range types {
			rows = append(rows, modelRow{Name: dt.Name, PartNumber: dt.PartNumber, URLName: dt.URLName})
		}
		fmt.Print(formatter.Format(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(modelsCmd)
}
