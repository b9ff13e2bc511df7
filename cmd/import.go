package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/config"
	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/source"
	"github.com/mzee2025/rdi-dashboard/internal/storage"
)

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Build the dashboard from a local export file (JSON, CSV or XLSX)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := initApp(ctx, config.ModeImport, source.NewFileSource(importPath), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Orch.Run(ctx, model.TriggerImport); err != nil {
			return eris.Wrap(err, "import")
		}

		st := a.Orch.Status()
		fields := []zap.Field{
			zap.String("file", importPath),
			zap.String("dashboard", a.Files.Path(storage.DashboardFile)),
		}
		if st.LastStats != nil {
			fields = append(fields, zap.Int("kept", st.LastStats.Kept), zap.Int("dropped", st.LastStats.Dropped))
		}
		zap.L().Info("import complete", fields...)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to the export file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
