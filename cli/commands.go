package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pokkz/metadata-stripper/core"
	"github.com/pokkz/metadata-stripper/core/batch"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view <image>...",
		Short: "Show the metadata embedded in images",
		Long: `Show every metadata entry of each image, one "key: value" line per entry
sorted by key. Images without metadata print "No metadata found."

Examples:
  surgery view photo.jpg
  surgery view --json *.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.imagePaths(args)
			if err != nil {
				return err
			}
			results, err := batch.Inspect(cmd.Context(), a.inspector, paths, a.opts.workers)
			if err != nil {
				return err
			}
			failed := false
			for _, r := range results {
				if r.Err != nil {
					a.printer.PrintFailure(r.Path, r.Err)
					failed = true
					continue
				}
				a.printer.PrintMetadata(r.Metadata)
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <image>...",
		Short: "Tell whether images carry metadata",
		Long: `Report for each image whether it embeds any metadata. An unreadable EXIF
block counts as no EXIF here, while view reports it as an error.

Examples:
  surgery check photo.jpg photo_NOMETADATA.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.imagePaths(args)
			if err != nil {
				return err
			}
			verdicts, err := batch.Check(cmd.Context(), a.inspector, paths, a.opts.workers)
			if err != nil {
				return err
			}
			failed := false
			for _, v := range verdicts {
				if v.Err != nil {
					a.printer.PrintFailure(v.Path, v.Err)
					failed = true
					continue
				}
				a.printer.PrintCheck(v.Path, v.Has)
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
}

func newStripCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "strip <image>...",
		Aliases: []string{"rm"},
		Short:   "Write metadata-free copies of images",
		Long: `Write <name>_NOMETADATA<ext> next to each image. The original is never
modified. Processing stops at the first image that fails.

Examples:
  surgery strip photo.jpg
  surgery strip a.png b.webp c.gif`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.imagePaths(args)
			if err != nil {
				return err
			}
			done, err := batch.Strip(cmd.Context(), a.stripper, paths)
			for _, o := range done {
				a.printer.PrintStripped(o.Path, o.Output)
			}
			var f *batch.Failure
			if errors.As(err, &f) {
				a.printer.PrintFailure(f.Path, f.Err)
				return errReported
			}
			if err != nil {
				return err
			}
			a.printer.PrintInfo("Metadata removed from selected images.")
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list <image>...",
		Aliases: []string{"ls"},
		Short:   "Summarise images in a table",
		Long: `Print one row per image with its format, colour mode, dimensions, size,
and how many metadata entries it carries.

Examples:
  surgery list *.jpg
  surgery ls photo.heic`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.imagePaths(args)
			if err != nil {
				return err
			}
			results, err := batch.Inspect(cmd.Context(), a.inspector, paths, a.opts.workers)
			if err != nil {
				return err
			}
			var rows []*core.Metadata
			failed := false
			for _, r := range results {
				if r.Err != nil {
					a.printer.PrintFailure(r.Path, r.Err)
					failed = true
					continue
				}
				if a.opts.json {
					a.printer.PrintMetadata(r.Metadata)
					continue
				}
				rows = append(rows, r.Metadata)
			}
			if len(rows) > 0 {
				a.printer.PrintTable(rows)
			}
			if failed {
				return errReported
			}
			return nil
		},
	}
}
