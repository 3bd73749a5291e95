package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/toolpath/internal/config"
	"github.com/leftmike/toolpath/internal/logging"
	"github.com/leftmike/toolpath/viewer"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gcview",
		Short: "gcview draws the toolpath of a G-code file",
		Long: `gcview interprets the motion commands of a G-code file (G0 to G3, G90 and G91) and
draws one layer of the resulting toolpath: extrusion in black, retraction in red, and,
optionally, travel moves in green.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "YAML or JSON configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn, or error")

	rootCmd.AddCommand(newRenderCmd(), newHTMLCmd(), newSegmentsCmd(), newServeCmd())
	return rootCmd
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("z", 0, "Z height of the layer to show")
	cmd.Flags().Bool("travel", false, "show travel moves")
	cmd.Flags().Float64("zoom", 1, "zoom")
	cmd.Flags().Float64("tx", 0, "horizontal translation in pixels")
	cmd.Flags().Float64("ty", 0, "vertical translation in pixels, down is positive")
	cmd.Flags().Int("width", 600, "width in pixels")
	cmd.Flags().Int("height", 600, "height in pixels")
	cmd.Flags().Float64("max-chord", 2, "longest chord, in pixels, used to draw an arc")
}

// flagKeys maps flags onto configuration keys.
var flagKeys = map[string]string{
	"z":         "display_z",
	"travel":    "draw_travel",
	"zoom":      "zoom",
	"width":     "width",
	"height":    "height",
	"max-chord": "max_chord",
	"log-level": "log_level",
	"addr":      "addr",
}

// loadConfig loads the configuration file, if any, and then applies the flags which were
// set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	raw := map[string]interface{}{}
	translate := map[string]interface{}{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "tx":
			translate["x"] = f.Value.String()
		case "ty":
			translate["y"] = f.Value.String()
		default:
			if key, ok := flagKeys[f.Name]; ok {
				raw[key] = f.Value.String()
			}
		}
	})
	if len(translate) > 0 {
		raw["translate"] = translate
	}
	err = config.Decode(raw, &cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("flags: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return cfg, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.NewWriter(cmd.ErrOrStderr(), level), nil
}

// readInput reads path, or standard input if path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func title(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

func newSession(cfg config.Config, logger *slog.Logger, text string) *viewer.Session {
	s := viewer.NewSession(viewer.Options{
		DisplayZ:   cfg.DisplayZ,
		DrawTravel: cfg.DrawTravel,
		View:       cfg.View(),
		Logger:     logger,
	})
	s.SetInput(text)
	return s
}
