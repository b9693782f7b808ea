package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openciq/gsl/container"
	"github.com/openciq/gsl/session"
)

var (
	firmwareXMLPath string
	firmwareOutDir  string
	firmwareApply   bool
)

var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Check the firmware update feed and optionally apply the updates",
	Long: `Query the unit software update feed with the watch's GarminDevice.xml,
download the pending images (verified against the feed's size and MD5)
and, with --apply, push them to the watch in installation order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		xml, err := os.ReadFile(firmwareXMLPath)
		if err != nil {
			return fmt.Errorf("reading device XML: %w", err)
		}

		client := storeClient()
		ctx := cmd.Context()

		updates, err := client.FirmwareUpdates(ctx, string(xml))
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			fmt.Println("Firmware is up to date.")
			return nil
		}

		if !firmwareApply {
			type fwRow struct {
				Name       string
				PartNumber string
				Version    string
				Size       int
			}
			rows := make([]fwRow, 0, len(updates))
			for _, u := range updates {
				major, minor := u.Version()
				rows = append(rows, fwRow{
					Name:       u.DisplayName,
					PartNumber: u.PartNumber,
					Version:    fmt.Sprintf("%d.%d", major, minor),
					Size:       u.Location.Size,
				})
			}
			fmt.Print(formatter.Format(rows))
			return nil
		}

		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Disconnect()

		for _, u := range updates {
			major, minor := u.Version()
			fmt.Printf("Downloading %s %d.%d...\n", u.DisplayName, major, minor)
			image, err := client.DownloadFirmware(ctx, &u)
			if err != nil {
				return err
			}

			if firmwareOutDir != "" {
				path := filepath.Join(firmwareOutDir, filepath.Base(u.FilePathOnUnit))
				if err := os.WriteFile(path, image, 0o644); err != nil {
					return err
				}
			}

			version := uint32(major)<<16 | uint32(minor)
			pkg := container.New(container.Firmware, u.DisplayName, version,
				[]string{u.PartNumber}, image)

			result, err := s.Push(ctx, pkg, printProgress)
			if err != nil {
				return err
			}
			fmt.Println()
			if result.Outcome != session.OutcomeAcked {
				return fmt.Errorf("firmware %s did not apply (%s): %w",
					u.DisplayName, result.Outcome, result.Err)
			}
			fmt.Printf("Applied %s %d.%d\n", u.DisplayName, major, minor)
		}
		return nil
	},
}

func init() {
	firmwareCmd.Flags().StringVar(&firmwareXMLPath, "xml", "", "path to the watch's GarminDevice.xml")
	firmwareCmd.Flags().StringVar(&firmwareOutDir, "save-to", "", "also save downloaded images to this directory")
	firmwareCmd.Flags().BoolVar(&firmwareApply, "apply", false, "push the updates to the watch")
	firmwareCmd.MarkFlagRequired("xml")
	rootCmd.AddCommand(firmwareCmd)
}
