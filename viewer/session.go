// Package viewer holds the state of one toolpath viewer: the G-code text being viewed, the
// layer and travel settings, and the pan and zoom of the view. Every redraw interprets the
// whole text again from the origin.
package viewer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/leftmike/toolpath"
	"github.com/leftmike/toolpath/internal/logging"
	"github.com/leftmike/toolpath/render"
)

type InputError struct {
	Field string
	Value string
	Err   error
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("viewer: %s: invalid value %q: %s", ie.Field, ie.Value, ie.Err)
}

func (ie *InputError) Unwrap() error {
	return ie.Err
}

type Options struct {
	DisplayZ   float64
	DrawTravel bool

	// View is the initial view; zero means the default view.
	View toolpath.ViewTransform

	Logger *slog.Logger
}

// Result is what a redraw produced.
type Result struct {
	Segments []toolpath.Segment
	Stats    toolpath.Stats
}

// Session is safe for concurrent use; redraws are serialized.
type Session struct {
	mu         sync.Mutex
	logger     *slog.Logger
	input      string
	displayZ   float64
	drawTravel bool
	view       toolpath.ViewTransform

	dragging   bool
	dragStart  toolpath.Point
	dragOrigin toolpath.Point
}

func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	view := opts.View
	if view.Validate() != nil {
		view = toolpath.DefaultView()
	}
	return &Session{
		logger:     logger,
		displayZ:   opts.DisplayZ,
		drawTravel: opts.DrawTravel,
		view:       view,
	}
}

func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input = text
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.input
}

// UpdateZ sets the display Z from text. If text is not a number, the display Z is left
// unchanged and an *InputError is returned.
func (s *Session) UpdateZ(text string) error {
	z, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err == nil && (math.IsNaN(z) || math.IsInf(z, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		return &InputError{Field: "display z", Value: text, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.displayZ = z
	return nil
}

func (s *Session) DisplayZ() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.displayZ
}

func (s *Session) SetDrawTravel(draw bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawTravel = draw
}

// ToggleTravel flips whether travel moves are drawn and returns the new setting.
func (s *Session) ToggleTravel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drawTravel = !s.drawTravel
	return s.drawTravel
}

func (s *Session) DrawTravel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.drawTravel
}

func (s *Session) View() toolpath.ViewTransform {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view
}

func (s *Session) SetView(view toolpath.ViewTransform) error {
	err := view.Validate()
	if err != nil {
		return &InputError{Field: "view", Value: view.String(), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = view
	return nil
}

// Scroll zooms the view by a wheel delta.
func (s *Session) Scroll(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.view.Zoomed(delta)
	if view.Validate() != nil {
		s.logger.Debug("ignoring scroll", "delta", delta, "view", s.view.String())
		return
	}
	s.view = view
}

func (s *Session) DragStart(pt toolpath.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dragging = true
	s.dragStart = pt
	s.dragOrigin = s.view.Translate
}

// Drag pans the view to follow the pointer at pt. It returns false if no drag is in progress.
func (s *Session) Drag(pt toolpath.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dragging {
		return false
	}
	s.view = s.view.Panned(s.dragStart, pt, s.dragOrigin)
	return true
}

func (s *Session) DragStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dragging = false
}

// Process resets the view and redraws the current input.
func (s *Session) Process(backend render.Backend) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = toolpath.DefaultView()
	s.dragging = false
	return s.redraw(backend)
}

// Clear drops the input and resets the view; the display Z and travel setting are kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input = ""
	s.view = toolpath.DefaultView()
	s.dragging = false
}

// Redraw runs one full pass over the input and draws the result with backend.
func (s *Session) Redraw(backend render.Backend) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.redraw(backend)
}

func (s *Session) redraw(backend render.Backend) (Result, error) {
	if backend == nil {
		return Result{}, render.ErrNoSurface
	}

	cmds, err := toolpath.ReadCommands(strings.NewReader(s.input), s.logger)
	if err != nil {
		return Result{}, err
	}

	in := toolpath.NewInterpreter(toolpath.Options{
		DisplayZ:   s.displayZ,
		DrawTravel: s.drawTravel,
		Logger:     s.logger,
	})
	var segs []toolpath.Segment
	for _, cmd := range cmds {
		seg, ok := in.Step(cmd)
		if ok {
			segs = append(segs, seg)
		}
	}

	res := Result{Segments: segs, Stats: in.Stats()}
	s.logger.Debug("redraw", "commands", res.Stats.Commands, "segments", res.Stats.Segments,
		"hidden", res.Stats.Hidden, "dropped", res.Stats.Dropped, "view", s.view.String())
	return res, backend.Render(segs, s.view)
}
