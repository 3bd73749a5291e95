package main

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/leftmike/toolpath"
)

var tagColors = map[toolpath.ColorTag]string{
	toolpath.Travel:  "#00a000",
	toolpath.Extrude: "#c0c0c0",
	toolpath.Retract: "#ff3030",
}

// listing is a Backend which writes one line per segment. Hidden segments are listed faint
// unless visibleOnly is set.
type listing struct {
	out         *termenv.Output
	visibleOnly bool
}

func newListing(w io.Writer, visibleOnly bool) *listing {
	return &listing{
		out:         termenv.NewOutput(w),
		visibleOnly: visibleOnly,
	}
}

func (l *listing) Render(segs []toolpath.Segment, view toolpath.ViewTransform) error {
	for sdx, seg := range segs {
		if l.visibleOnly && !seg.IsVisible() {
			continue
		}

		s := l.out.String(fmt.Sprintf("%4d %s", sdx+1, seg))
		if seg.IsVisible() {
			s = s.Foreground(l.out.Color(tagColors[seg.Tag()]))
		} else {
			s = s.Faint()
		}
		_, err := fmt.Fprintln(l.out, s)
		if err != nil {
			return err
		}
	}
	return nil
}

func newSegmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segments FILE",
		Short: "List the segments of a G-code file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			visibleOnly, _ := cmd.Flags().GetBool("visible")

			res, err := newSession(cfg, logger, text).Redraw(newListing(cmd.OutOrStdout(),
				visibleOnly))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"commands: %d segments: %d hidden: %d dropped arcs: %d ignored: %d\n",
				res.Stats.Commands, res.Stats.Segments, res.Stats.Hidden, res.Stats.Dropped,
				res.Stats.Ignored)
			return err
		},
	}

	addViewFlags(cmd)
	cmd.Flags().Bool("visible", false, "list only visible segments")
	return cmd
}
