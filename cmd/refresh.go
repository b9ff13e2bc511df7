package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mzee2025/rdi-dashboard/internal/config"
	"github.com/mzee2025/rdi-dashboard/internal/model"
	"github.com/mzee2025/rdi-dashboard/internal/storage"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle against ONA and publish the dashboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		src, err := initONASource()
		if err != nil {
			return err
		}
		a, err := initApp(ctx, config.ModeRefresh, src, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Orch.Run(ctx, model.TriggerCLI); err != nil {
			return eris.Wrap(err, "refresh")
		}

		zap.L().Info("dashboard published", zap.String("path", a.Files.Path(storage.DashboardFile)))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a.Orch.Status())
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
