package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leftmike/toolpath/render"
)

func newHTMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "html FILE",
		Short: "Write a web page which shows one layer of a G-code file",
		Long: `Write a standalone web page which draws one layer of a G-code file; zoom with
the mouse wheel and pan by dragging.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			page := &render.Page{
				W:      cmd.OutOrStdout(),
				Title:  title(args[0]),
				Width:  cfg.Width,
				Height: cfg.Height,
			}
			output, _ := cmd.Flags().GetString("output")
			var f *os.File
			if output != "" && output != "-" {
				f, err = os.Create(output)
				if err != nil {
					return err
				}
				page.W = f
			}

			res, err := newSession(cfg, logger, text).Redraw(page)
			if f != nil {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}
			if err != nil {
				return err
			}
			logger.Info("wrote page", "file", args[0], "segments", res.Stats.Segments,
				"hidden", res.Stats.Hidden, "dropped", res.Stats.Dropped)
			return nil
		},
	}

	addViewFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "output page")
	return cmd
}
