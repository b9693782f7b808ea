package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openciq/gsl/ciq"
	"github.com/openciq/gsl/container"
	"github.com/openciq/gsl/internal/registry"
	"github.com/openciq/gsl/protocol"
	"github.com/openciq/gsl/updater"
)

var (
	updateDryRun bool
	updateForce  bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply pending Connect IQ app updates to the watch",
	Long: `Ask the store which of the watch's installed apps have newer versions
and push them one by one. The run stops as soon as a transfer breaks, so
a flaky cable never leaves more than one app in doubt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := connect()
		if err != nil {
			return err
		}
		defer s.Disconnect()
		ctx := cmd.Context()

		installed, err := s.ListInstalled(ctx)
		if err != nil {
			return err
		}
		if len(installed) == 0 {
			fmt.Println("No apps installed.")
			return nil
		}

		client := storeClient()
		identity := s.Identity()

		descriptors, err := buildDescriptors(ctx, client, identity.PartNumber, installed)
		if err != nil {
			return err
		}
		if len(descriptors) == 0 {
			fmt.Println("Everything is up to date.")
			return nil
		}

		if updateDryRun {
			type pending struct {
				Name      string
				Installed uint32
				Available uint32
			}
			rows := make([]pending, 0, len(descriptors))
			for _, d := range descriptors {
				rows = append(rows, pending{d.Name, d.CurrentVersion, d.AvailableVersion})
			}
			fmt.Print(formatter.Format(rows))
			return nil
		}

		opts := []updater.Option{
			updater.WithLogger(newLogger(verbose)),
			updater.WithProgress(printProgress),
		}
		if updateForce {
			opts = append(opts, updater.WithForce())
		}

		report, err := updater.Run(ctx, s, descriptors, opts...)
		if err != nil {
			return err
		}
		fmt.Println()

		type resultRow struct {
			Name   string
			Status string
		}
		rows := make([]resultRow, 0, len(report.Results))
		for _, r := range report.Results {
			rows = append(rows, resultRow{r.Name, r.Status.String()})
		}
		fmt.Print(formatter.Format(rows))

		if report.Failed() {
			return fmt.Errorf("%d of %d updates applied", report.Applied, len(report.Results))
		}
		fmt.Printf("Applied %d update(s).\n", report.Applied)
		return nil
	},
}

// buildDescriptors matches the watch's installed apps against the store's
// update feed. The watch reports apps by name and version only; the local
// registry supplies the store ids recorded at install time. Apps missing
// from the registry are skipped with a note.
func buildDescriptors(ctx context.Context, client *ciq.Client, partNumber string, installed []protocol.AppEntry) ([]updater.Descriptor, error) {
	reg, err := registry.Load(registry.DefaultPath())
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]protocol.AppEntry)
	var query []ciq.InstalledApp
	for _, app := range installed {
		id, ok := reg.Lookup(app.Name)
		if !ok {
			fmt.Printf("Skipping %q: not in the local registry, reinstall it with gsl install --url\n", app.Name)
			continue
		}
		byID[id] = app
		query = append(query, ciq.InstalledApp{AppID: id, InternalVersionNumber: app.Version})
	}
	if len(query) == 0 {
		return nil, nil
	}

	updates, err := client.AppUpdates(ctx, partNumber, query)
	if err != nil {
		return nil, err
	}

	urlName, err := urlNameForPart(ctx, client, partNumber)
	if err != nil {
		return nil, err
	}

	var descriptors []updater.Descriptor
	for _, u := range updates {
		local, ok := byID[u.AppID]
		if !ok {
			continue
		}
		appID := u.AppID
		name := u.Name
		version := u.LatestInternalVersionNumber
		descriptors = append(descriptors, updater.Descriptor{
			Name:             name,
			CurrentVersion:   local.Version,
			AvailableVersion: version,
			Fetch: func(ctx context.Context) (*container.Package, error) {
				versionID, err := client.LatestAppVersionID(ctx, appID)
				if err != nil {
					return nil, err
				}
				binary, err := client.DownloadApp(ctx, appID, versionID, urlName)
				if err != nil {
					return nil, err
				}
				return container.New(container.Application, name, version,
					[]string{partNumber}, binary), nil
			},
		})
	}
	return descriptors, nil
}

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "show pending updates without applying them")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "reinstall apps whose version already matches")
	rootCmd.AddCommand(updateCmd)
}
