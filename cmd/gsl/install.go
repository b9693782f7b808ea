package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openciq/gsl/ciq"
	"github.com/openciq/gsl/container"
	"github.com/openciq/gsl/internal/registry"
	"github.com/openciq/gsl/session"
)

var installFromURL string

var installCmd = &cobra.Command{
	Use:   "install [package file]",
	Short: "Push a package to the watch",
	Long: `Push a package to the watch, either from a package file on disk or
straight from a Connect IQ store URL (--url). Store installs need a
session token and download the newest version built for the connected
model.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 0) == (installFromURL == "") {
			return fmt.Errorf("pass either a package file or --url")
		}

		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Disconnect()

		var pkg *container.Package
		var appID uuid.UUID
		if len(args) == 1 {
			pkg, err = loadPackage(args[0])
		} else {
			pkg, appID, err = fetchStorePackage(cmd, s)
		}
		if err != nil {
			return err
		}

		if !pkg.CompatibleWith(s.Identity().PartNumber) {
			return fmt.Errorf("package %q does not list this watch (%s)",
				pkg.Name, s.Identity().PartNumber)
		}

		result, err := s.Push(cmd.Context(), pkg, printProgress)
		if err != nil {
			return err
		}
		fmt.Println()

		switch result.Outcome {
		case session.OutcomeAcked:
			if appID != uuid.Nil {
				if err := recordInstall(pkg.Name, appID); err != nil {
					fmt.Fprintf(os.Stderr, "warning: could not update the app registry: %v\n", err)
				}
			}
			fmt.Printf("Installed %q (%d segments)\n", pkg.Name, result.SegmentsTotal)
			return nil
		case session.OutcomeRejected:
			return fmt.Errorf("watch rejected %q: %w", pkg.Name, result.Err)
		default:
			return fmt.Errorf("transfer of %q broke after %d/%d segments, watch state unknown: %w",
				pkg.Name, result.SegmentsSent, result.SegmentsTotal, result.Err)
		}
	},
}

// loadPackage reads and validates a package file.
func loadPackage(path string) (*container.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pkg, err := container.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pkg, nil
}

// fetchStorePackage downloads the newest version of a store app for the
// connected watch and wraps it into an application package.
func fetchStorePackage(cmd *cobra.Command, s *session.Session) (*container.Package, uuid.UUID, error) {
	appID, err := ciq.AppIDFromURL(installFromURL)
	if err != nil {
		return nil, uuid.Nil, err
	}

	client := storeClient()
	ctx := cmd.Context()

	info, err := client.AppInfo(ctx, appID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	urlName, err := urlNameForPart(ctx, client, s.Identity().PartNumber)
	if err != nil {
		return nil, uuid.Nil, err
	}

	versionID, err := client.LatestAppVersionID(ctx, appID)
	if err != nil {
		return nil, uuid.Nil, err
	}

	binary, err := client.DownloadApp(ctx, appID, versionID, urlName)
	if err != nil {
		return nil, uuid.Nil, err
	}

	pkg := container.New(container.Application, info.Name, 0,
		[]string{s.Identity().PartNumber}, binary)
	return pkg, appID, nil
}

// recordInstall remembers which store listing an installed app came from,
// so gsl update can query the store for it later.
func recordInstall(name string, appID uuid.UUID) error {
	reg, err := registry.Load(registry.DefaultPath())
	if err != nil {
		return err
	}
	reg.Record(name, appID)
	return reg.Save()
}

// urlNameForPart resolves a part number to the store's URL name.
func urlNameForPart(ctx context.Context, client *ciq.Client, partNumber string) (string, error) {
	types, err := client.DeviceTypes(ctx)
	if err != nil {
		return "", err
	}
	for _, dt := range types {
		if dt.PartNumber == partNumber {
			return dt.URLName, nil
		}
	}
	return "", fmt.Errorf("the store does not know part number %s", partNumber)
}

func printProgress(p session.Progress) {
	fmt.Printf("\r%-9s %3.0f%% (%d/%d segments)", p.Phase, p.Percentage, p.Segment, p.Total)
}

func init() {
	installCmd.Flags().StringVar(&installFromURL, "url", "", "Connect IQ store URL to install from")
	rootCmd.AddCommand(installCmd)
}
