package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/leftmike/toolpath"
	"github.com/leftmike/toolpath/internal/config"
	"github.com/leftmike/toolpath/render"
	"github.com/leftmike/toolpath/viewer"
)

const (
	maxInputSize = 64 << 20
)

type server struct {
	session *viewer.Session
	cfg     config.Config
	title   string
	metrics *metrics
	logger  *slog.Logger
}

func newHandler(srv *server, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", srv.page)
	r.Get("/render.png", srv.renderPNG)
	r.Post("/input", srv.input)
	r.Post("/clear", srv.clear)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

func parseFloats(field, s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, &viewer.InputError{Field: field, Value: s,
			Err: fmt.Errorf("expected %d numbers", n)}
	}
	fs := make([]float64, n)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, &viewer.InputError{Field: field, Value: s, Err: err}
		}
		fs[i] = f
	}
	return fs, nil
}

// applyQuery updates the session from the query parameters: z, travel (a bool or toggle),
// zoom, tx, and ty set the view; wheel scrolls it and drag=x0,y0,x1,y1 pans it.
func (srv *server) applyQuery(r *http.Request) error {
	q := r.URL.Query()
	if q.Has("z") {
		err := srv.session.UpdateZ(q.Get("z"))
		if err != nil {
			return err
		}
	}
	if q.Get("travel") == "toggle" {
		srv.session.ToggleTravel()
	} else if q.Has("travel") {
		travel, err := strconv.ParseBool(q.Get("travel"))
		if err != nil {
			return &viewer.InputError{Field: "travel", Value: q.Get("travel"), Err: err}
		}
		srv.session.SetDrawTravel(travel)
	}

	view := srv.session.View()
	changed := false
	for _, param := range []struct {
		name string
		val  *float64
	}{
		{"zoom", &view.Zoom},
		{"tx", &view.Translate.X},
		{"ty", &view.Translate.Y},
	} {
		if !q.Has(param.name) {
			continue
		}
		f, err := strconv.ParseFloat(q.Get(param.name), 64)
		if err != nil {
			return &viewer.InputError{Field: param.name, Value: q.Get(param.name), Err: err}
		}
		*param.val = f
		changed = true
	}
	if changed {
		err := srv.session.SetView(view)
		if err != nil {
			return err
		}
	}

	if q.Has("wheel") {
		fs, err := parseFloats("wheel", q.Get("wheel"), 1)
		if err != nil {
			return err
		}
		srv.session.Scroll(fs[0])
	}
	if q.Has("drag") {
		fs, err := parseFloats("drag", q.Get("drag"), 4)
		if err != nil {
			return err
		}
		srv.session.DragStart(toolpath.Point{X: fs[0], Y: fs[1]})
		srv.session.Drag(toolpath.Point{X: fs[2], Y: fs[3]})
		srv.session.DragStop()
	}
	return nil
}

func (srv *server) redraw(backend render.Backend,
	draw func(render.Backend) (viewer.Result, error)) error {

	start := time.Now()
	res, err := draw(backend)
	if err != nil {
		return err
	}
	srv.metrics.observe(res, time.Since(start))
	return nil
}

func (srv *server) writeError(w http.ResponseWriter, err error) {
	var ie *viewer.InputError
	if errors.As(err, &ie) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	srv.logger.Error("redraw failed", "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (srv *server) writePNG(w http.ResponseWriter,
	draw func(render.Backend) (viewer.Result, error)) {

	canvas := render.NewCanvas(srv.cfg.Width, srv.cfg.Height)
	canvas.MaxChord = srv.cfg.MaxChord
	err := srv.redraw(canvas, draw)
	if err != nil {
		srv.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	err = canvas.WritePNG(&buf)
	if err != nil {
		srv.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (srv *server) renderPNG(w http.ResponseWriter, r *http.Request) {
	err := srv.applyQuery(r)
	if err != nil {
		srv.writeError(w, err)
		return
	}
	srv.writePNG(w, srv.session.Redraw)
}

func (srv *server) page(w http.ResponseWriter, r *http.Request) {
	err := srv.applyQuery(r)
	if err != nil {
		srv.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	err = srv.redraw(&render.Page{
		W:      &buf,
		Title:  srv.title,
		Width:  srv.cfg.Width,
		Height: srv.cfg.Height,
	}, srv.session.Redraw)
	if err != nil {
		srv.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// input replaces the G-code with the request body, resets the view, and returns the new
// drawing.
func (srv *server) input(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInputSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	srv.session.SetInput(string(b))
	srv.writePNG(w, srv.session.Process)
}

func (srv *server) clear(w http.ResponseWriter, r *http.Request) {
	srv.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Serve a viewer for a G-code file over HTTP",
		Long: `Serve a viewer for a G-code file over HTTP.

  GET  /            web page; zoom with the wheel and pan by dragging
  GET  /render.png  PNG image; query parameters z, travel (true, false, or toggle),
                    zoom, tx, ty, wheel (scroll delta), and drag (x0,y0,x1,y1)
  POST /input       replace the G-code with the request body
  POST /clear       clear the G-code and reset the view
  GET  /metrics     Prometheus metrics`,
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

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			srv := &server{
				session: newSession(cfg, logger, text),
				cfg:     cfg,
				title:   title(args[0]),
				metrics: newMetrics(reg),
				logger:  logger,
			}
			return listenAndServe(cmd.Context(), &http.Server{
				Addr:    cfg.Addr,
				Handler: newHandler(srv, reg),
			}, logger)
		},
	}

	addViewFlags(cmd)
	cmd.Flags().String("addr", ":8080", "address to listen on")
	return cmd
}

func listenAndServe(ctx context.Context, httpServer *http.Server, logger *slog.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("serving", "addr", httpServer.Addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		logger.Info("shutting down", "addr", httpServer.Addr)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := httpServer.Shutdown(ctx)
		if err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			return httpServer.Close()
		}
		return nil
	}
}
