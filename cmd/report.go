package main

import (
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/config"
	"github.com/mzee2025/rdi-dashboard/internal/refresh"
	"github.com/mzee2025/rdi-dashboard/internal/storage"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the XLSX quality report from the last persisted records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := initApp(ctx, config.ModeReport, nil, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		data, err := a.Orch.QualityReport(ctx)
		if errors.Is(err, refresh.ErrNoData) {
			return eris.New("report: no records persisted yet, run refresh or import first")
		}
		if err != nil {
			return eris.Wrap(err, "report")
		}

		out := reportOut
		if out == "" {
			if err := a.Files.SaveDocument(storage.ReportFile, data); err != nil {
				return err
			}
			out = a.Files.Path(storage.ReportFile)
		} else if err := os.WriteFile(out, data, 0o644); err != nil {
			return eris.Wrapf(err, "report: write %s", out)
		}

		zap.L().Info("quality report written", zap.String("path", out), zap.Int("bytes", len(data)))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output path (default <storage.dir>/"+storage.ReportFile+")")
	rootCmd.AddCommand(reportCmd)
}
