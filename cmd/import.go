package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crowdsense/vibesense/internal/fetcher"
)

var (
	importXLSXPath string
	importSeedPath string
	importSheet    string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import venues from an XLSX sheet or a JSON seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if importXLSXPath == "" && importSeedPath == "" {
			return eris.New("one of --xlsx or --seed is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		if importXLSXPath != "" {
			venues, err := fetcher.ReadVenuesXLSX(importXLSXPath, fetcher.XLSXOptions{SheetName: importSheet})
			if err != nil {
				return eris.Wrap(err, "read venues xlsx")
			}
			n, err := fetcher.ImportVenues(ctx, st, venues)
			if err != nil {
				return eris.Wrap(err, "import venues")
			}
			zap.L().Info("xlsx import complete",
				zap.Int("venues", n),
				zap.String("file", importXLSXPath),
			)
		}

		if importSeedPath != "" {
			seed, err := fetcher.ReadSeedJSON(importSeedPath)
			if err != nil {
				return eris.Wrap(err, "read seed json")
			}
			n, err := fetcher.ImportSeed(ctx, st, seed)
			if err != nil {
				return eris.Wrap(err, "import seed")
			}
			zap.L().Info("seed import complete",
				zap.Int("venues", n),
				zap.String("file", importSeedPath),
			)
		}

		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importXLSXPath, "xlsx", "", "path to venues XLSX file")
	importCmd.Flags().StringVar(&importSeedPath, "seed", "", "path to JSON seed file with venues and evidence")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	rootCmd.AddCommand(importCmd)
}
