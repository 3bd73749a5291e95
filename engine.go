package toolpath

import (
	"iter"
	"log/slog"
	"slices"

	"github.com/leftmike/toolpath/internal/logging"
)

type PositioningMode byte

const (
	Absolute PositioningMode = iota // G90
	Relative                        // G91
)

func (pm PositioningMode) String() string {
	if pm == Relative {
		return "relative"
	}
	return "absolute"
}

// MachineState is the position and positioning mode after the commands interpreted so far.
// Each pass starts from the origin in absolute mode.
type MachineState struct {
	Pos  Position
	Mode PositioningMode
}

type Options struct {
	// DisplayZ selects the layer to show; segments more than LayerTolerance away are hidden.
	DisplayZ float64

	// DrawTravel shows moves without extrusion.
	DrawTravel bool

	Logger *slog.Logger
}

type Stats struct {
	Commands int // All commands seen
	Segments int // Segments returned, including hidden ones
	Hidden   int
	Dropped  int // Arcs which could not be resolved
	Ignored  int
}

// Interpreter walks commands in order, one at a time, tracking the machine state and turning
// each motion command into a Segment. An Interpreter is used for a single pass.
type Interpreter struct {
	opts   Options
	logger *slog.Logger
	state  MachineState
	stats  Stats
}

func NewInterpreter(opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Interpreter{
		opts:   opts,
		logger: logger,
		state: MachineState{
			Pos:  zeroPosition,
			Mode: Absolute,
		},
	}
}

func (in *Interpreter) State() MachineState {
	return in.state
}

func (in *Interpreter) Stats() Stats {
	return in.stats
}

// Step interprets one command. It returns a segment for G0 to G3 moves, except for arcs which
// can not be resolved; those are dropped without changing the state.
func (in *Interpreter) Step(cmd Command) (Segment, bool) {
	in.stats.Commands += 1

	switch {
	case cmd.Is(General, 90, 0): // G90: absolute distance mode
		in.state.Mode = Absolute
		return nil, false
	case cmd.Is(General, 91, 0): // G91: incremental distance mode
		in.state.Mode = Relative
		return nil, false
	}

	var seg Segment
	if cmd.Mnemonic == General {
		switch cmd.Major {
		case 0, 1: // G0: rapid move, G1: linear move
			seg = in.lineTo(cmd)
		case 2, 3: // G2: clockwise arc move, G3: counter-clockwise arc move
			seg = in.arcTo(cmd)
			if seg == nil {
				return nil, false
			}
		}
	}

	if seg == nil {
		in.stats.Ignored += 1
		return nil, false
	}

	in.stats.Segments += 1
	if !seg.IsVisible() {
		in.stats.Hidden += 1
	}
	return seg, true
}

func (in *Interpreter) toMachine(cur, val float64) float64 {
	if in.state.Mode == Absolute {
		return val
	}
	// relative
	return cur + val
}

// intent returns the color of a move and whether it should be drawn at all: extruding moves
// always are, travel moves only when DrawTravel is set.
func (in *Interpreter) intent(cmd Command) (ColorTag, bool) {
	e, ok := cmd.ValueFor('e')
	if ok {
		return Classify(e, true), true
	}
	return Travel, in.opts.DrawTravel
}

func (in *Interpreter) lineTo(cmd Command) Segment {
	from := in.state.Pos.XY()
	pos := in.state.Pos
	if z, ok := cmd.ValueFor('z'); ok {
		// Z is always absolute.
		pos.Z = z
	}
	color, draw := in.intent(cmd)

	if x, ok := cmd.ValueFor('x'); ok {
		pos.X = in.toMachine(pos.X, x)
	}
	if y, ok := cmd.ValueFor('y'); ok {
		pos.Y = in.toMachine(pos.Y, y)
	}
	in.state.Pos = pos

	return Line{
		From:    from,
		To:      pos.XY(),
		Z:       pos.Z,
		Visible: IsVisible(pos.Z, in.opts.DisplayZ, draw),
		Color:   color,
	}
}

func (in *Interpreter) arcTo(cmd Command) Segment {
	pos := in.state.Pos
	if z, ok := cmd.ValueFor('z'); ok {
		pos.Z = z
	}
	color, draw := in.intent(cmd)

	x, okX := cmd.ValueFor('x')
	y, okY := cmd.ValueFor('y')
	if !okX || !okY {
		in.drop(cmd, ErrInsufficientArcData, "expected X and Y")
		return nil
	}
	start := pos.XY()
	end := Point{in.toMachine(pos.X, x), in.toMachine(pos.Y, y)}

	var offset *Point
	i, okI := cmd.ValueFor('i')
	j, okJ := cmd.ValueFor('j')
	if okI || okJ {
		offset = &Point{i, j}
	}
	var radius *float64
	if r, ok := cmd.ValueFor('r'); ok {
		radius = &r
	}

	geom, err := ResolveArc(start, end, offset, radius)
	if err != nil {
		in.drop(cmd, err, "")
		return nil
	}

	in.state.Pos = Position{X: end.X, Y: end.Y, Z: pos.Z}
	return Arc{
		Center:     geom.Center,
		Radius:     geom.Radius,
		StartAngle: angleTo(geom.Center, start),
		EndAngle:   angleTo(geom.Center, end),
		Clockwise:  cmd.Major == 2,
		Z:          pos.Z,
		Visible:    IsVisible(pos.Z, in.opts.DisplayZ, draw),
		Color:      color,
	}
}

func (in *Interpreter) drop(cmd Command, err error, reason string) {
	in.stats.Dropped += 1
	if reason != "" {
		in.logger.Debug("dropping arc", "line", cmd.Line, "cmd", cmd.String(), "err", err,
			"reason", reason)
	} else {
		in.logger.Debug("dropping arc", "line", cmd.Line, "cmd", cmd.String(), "err", err)
	}
}

// Segments lazily interprets cmds from the origin, yielding a segment for each motion command
// in order.
func Segments(cmds iter.Seq[Command], opts Options) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		in := NewInterpreter(opts)
		for cmd := range cmds {
			seg, ok := in.Step(cmd)
			if ok && !yield(seg) {
				return
			}
		}
	}
}

// Interpret runs a complete pass over cmds.
func Interpret(cmds []Command, opts Options) []Segment {
	return slices.Collect(Segments(slices.Values(cmds), opts))
}
