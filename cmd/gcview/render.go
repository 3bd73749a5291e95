package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leftmike/toolpath/internal/config"
	"github.com/leftmike/toolpath/render"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Draw one layer of a G-code file as an image",
		Long: `Draw one layer of a G-code file as a PNG, BMP, or TIFF image; the format follows
the extension of the output file. Use - as FILE to read standard input and as the output to
write a PNG to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			watch, _ := cmd.Flags().GetBool("watch")
			if watch && args[0] == "-" {
				return errors.New("render: can not watch standard input")
			}

			draw := func() error {
				return renderFile(cmd, cfg, logger, args[0], output)
			}
			err = draw()
			if !watch {
				return err
			} else if err != nil {
				logger.Error("render failed", "file", args[0], "err", err)
			}
			return watchFile(cmd.Context(), args[0], logger, draw)
		},
	}

	addViewFlags(cmd)
	cmd.Flags().StringP("output", "o", "toolpath.png", "output image")
	cmd.Flags().Bool("watch", false, "render again whenever FILE changes")
	return cmd
}

func renderFile(cmd *cobra.Command, cfg config.Config, logger *slog.Logger, path,
	output string) error {

	text, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	canvas := render.NewCanvas(cfg.Width, cfg.Height)
	canvas.MaxChord = cfg.MaxChord
	res, err := newSession(cfg, logger, text).Redraw(canvas)
	if err != nil {
		return err
	}

	if output == "-" {
		err = canvas.WritePNG(cmd.OutOrStdout())
	} else {
		var f *os.File
		f, err = os.Create(output)
		if err != nil {
			return err
		}
		err = canvas.Encode(f, render.FormatFor(output))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}

	logger.Info("rendered", "file", path, "output", output, "segments", res.Stats.Segments,
		"hidden", res.Stats.Hidden, "dropped", res.Stats.Dropped)
	return nil
}

// watchFile calls fn every time path is written or replaced, until ctx is done. The directory
// is watched, rather than the file, so that editors which replace the file are seen.
func watchFile(ctx context.Context, path string, logger *slog.Logger, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		return err
	}
	logger.Info("watching", "file", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("file changed", "file", path, "op", event.Op.String())
			err := fn()
			if err != nil {
				logger.Error("render failed", "file", path, "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "err", err)
		}
	}
}
