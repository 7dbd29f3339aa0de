package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/core/resolve"
)

func newDropCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <path>...",
		Short: "Drop files and directories from a source",
		Long: `Drop resolves the given paths, relative to the source root, as one drop
interaction. Directories are expanded when --expand-directories is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src, err := a.openSource(ctx)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			payload, err := entryPayload(ctx, src, args)
			if err != nil {
				return err
			}

			svc, err := a.newService(cmd, nil)
			if err != nil {
				return err
			}
			return svc.HandleDrop(ctx, payload)
		},
	}
}

// entryPayload looks up each path in src and wraps the entries as one drop
func entryPayload(ctx context.Context, src adapter.Source, paths []string) (*resolve.Payload, error) {
	payload := &resolve.Payload{EntriesSupported: true}
	for _, p := range paths {
		entry, err := src.Entry(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		payload.Items = append(payload.Items, resolve.EntryItem(entry))
	}
	return payload, nil
}
