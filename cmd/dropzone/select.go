package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/adapter/local"
	"github.com/Ning0612/Dropzone/internal/domain"
)

func newSelectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "select <file>...",
		Short: "Classify a flat selection of local files",
		Long: `Select behaves like a native file picker: every argument must be a
file, nothing is expanded, and an empty selection prints nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files := make([]domain.FileCandidate, 0, len(args))
			for _, p := range args {
				abs, err := filepath.Abs(p)
				if err != nil {
					return err
				}
				src, err := local.New(filepath.Dir(abs))
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				entry, err := src.Entry(ctx, filepath.Base(abs))
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				fe, ok := entry.(adapter.FileEntry)
				if !ok {
					return fmt.Errorf("%s: %w", p, domain.ErrNotFile)
				}
				c, err := fe.File(ctx)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				files = append(files, c)
			}

			svc, err := a.newService(cmd, nil)
			if err != nil {
				return err
			}
			return svc.HandleSelection(ctx, files)
		},
	}
}
