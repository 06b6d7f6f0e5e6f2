package main

import (
	"fmt"
	"os"

	"github.com/habitgrid/internal/locale"
	"github.com/habitgrid/internal/service"
	"github.com/habitgrid/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSnapshotCmd() *cobra.Command {
	var scale float64

	cmd := &cobra.Command{
		Use:   "snapshot <out.png>",
		Short: "Render the completion grid to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			settings := service.NewSettingService(a.store)
			prefs, err := settings.GetPreferences(cmd.Context())
			if err != nil {
				return err
			}
			prefs.Language = locale.LanguageEnglish

			layout := service.NewGridService(a.repo, settings).Layout(prefs, a.repo.Today())
			if layout.Empty() {
				return fmt.Errorf("no active habits to render")
			}

			opts := snapshot.Options{Scale: scale, Accent: prefs.AccentColor}
			if prefs.Theme == service.ThemeDark {
				opts.Palette = snapshot.DarkPalette
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create snapshot file: %w", err)
			}
			if err := snapshot.WritePNG(f, layout, opts); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.logger.Info("snapshot written", zap.String("file", args[0]), zap.Int("habits", len(layout.Rows)))
			return nil
		},
	}
	cmd.Flags().Float64Var(&scale, "scale", 1, "output scale factor")
	return cmd
}
