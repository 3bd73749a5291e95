package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leftmike/toolpath"
	"github.com/leftmike/toolpath/internal/config"
	"github.com/leftmike/toolpath/internal/logging"
)

const program = `
G90
G1 Z0.2 X10 Y0 E1
G0 X10 Y10
G1 Z0.4 X0 Y10 E1
G1 X0 Y0 E-1
G2 X0 Y0 R5
`

func writeProgram(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "part.gcode")
	require.NoError(t, os.WriteFile(path, []byte(program), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(program))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSegmentsCmd(t *testing.T) {
	path := writeProgram(t)

	out, err := execute(t, "segments", path, "--z", "0.2")
	require.NoError(t, err)
	assert.Contains(t, out, "   1 line {x: 0, y: 0} -> {x: 10, y: 0} z: 0.2 extrude\n")
	assert.Contains(t, out, "   4 line {x: 0, y: 10} -> {x: 0, y: 0} z: 0.4 retract\n")
	assert.Contains(t, out,
		"commands: 6 segments: 4 hidden: 3 dropped arcs: 1 ignored: 0\n")

	out, err = execute(t, "segments", "-", "--z", "0.4", "--travel", "--visible")
	require.NoError(t, err)
	assert.NotContains(t, out, "   1 line")
	assert.Contains(t, out, "   3 line")
	assert.Contains(t, out, "   4 line")
	assert.Contains(t, out, "hidden: 2")

	_, err = execute(t, "segments", filepath.Join(t.TempDir(), "missing.gcode"))
	assert.Error(t, err)
	_, err = execute(t, "segments", path, "--zoom", "0")
	assert.Error(t, err)
	_, err = execute(t, "segments", path, "--log-level", "loud")
	assert.Error(t, err)
}

func TestRenderCmd(t *testing.T) {
	path := writeProgram(t)
	output := filepath.Join(t.TempDir(), "part.png")

	_, err := execute(t, "render", path, "-o", output, "--width", "100", "--height", "80",
		"--z", "0.2", "--zoom", "4", "--tx", "-20", "--ty", "20")
	require.NoError(t, err)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 80), img.Bounds())

	out, err := execute(t, "render", path, "-o", "-")
	require.NoError(t, err)
	img, err = png.Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 600, 600), img.Bounds())

	_, err = execute(t, "render", "-", "--watch")
	assert.Error(t, err)
	_, err = execute(t, "render", path, "-o", filepath.Join(t.TempDir(), "part.gif"))
	assert.Error(t, err)
}

func TestRenderCmdConfig(t *testing.T) {
	path := writeProgram(t)
	cfgPath := filepath.Join(t.TempDir(), "gcview.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("width: 50\nheight: 40\n"), 0644))
	output := filepath.Join(t.TempDir(), "part.bmp")

	_, err := execute(t, "render", path, "-o", output, "--config", cfgPath, "--height", "30")
	require.NoError(t, err)
	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(50*30))

	require.NoError(t, os.WriteFile(cfgPath, []byte("zoom: none\n"), 0644))
	_, err = execute(t, "render", path, "-o", output, "--config", cfgPath)
	assert.Error(t, err)
}

func TestHTMLCmd(t *testing.T) {
	path := writeProgram(t)

	out, err := execute(t, "html", path, "--z", "0.4")
	require.NoError(t, err)
	assert.Contains(t, out, "<title>part.gcode</title>")
	assert.Contains(t, out, `<canvas class="toolpath-view" width="600" height="600">`)
	assert.Contains(t, out, `"color":"red"`)
	assert.NotContains(t, out, `"color":"green"`)

	output := filepath.Join(t.TempDir(), "part.html")
	out, err = execute(t, "html", path, "-o", output, "--travel", "--z", "0.2")
	require.NoError(t, err)
	assert.Empty(t, out)
	b, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"color":"green"`)
	assert.True(t, strings.HasSuffix(string(b), "</html>\n"))

	_, err = execute(t, "html", path, "-o", filepath.Join(t.TempDir(), "missing", "part.html"))
	assert.Error(t, err)
}

func newTestServer(t *testing.T) (*httptest.Server, *server) {
	t.Helper()

	cfg := config.Default()
	cfg.Width = 64
	cfg.Height = 48
	cfg.DisplayZ = 0.2
	reg := prometheus.NewRegistry()
	srv := &server{
		session: newSession(cfg, logging.NewNop(), program),
		cfg:     cfg,
		title:   "part.gcode",
		metrics: newMetrics(reg),
		logger:  logging.NewNop(),
	}
	ts := httptest.NewServer(newHandler(srv, reg))
	t.Cleanup(ts.Close)
	return ts, srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestServer(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, b := get(t, ts.URL+"/render.png?z=0.4&travel=true&zoom=2&tx=5&ty=-5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())

	for _, query := range []string{"z=abc", "travel=maybe", "zoom=0", "tx=left"} {
		resp, _ = get(t, ts.URL+"/render.png?"+query)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}

	resp, b = get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), "<title>part.gcode</title>")
	assert.Contains(t, string(b), `"zoom":2,"tx":5,"ty":-5`)

	resp, err = http.Post(ts.URL+"/input", "text/plain", strings.NewReader("G1 X1 E1\n"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	// The view was reset by the new input.
	resp, b = get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `"zoom":1,"tx":0,"ty":0`)

	resp, err = http.Post(ts.URL+"/clear", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, b = get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := string(b)
	assert.Contains(t, body, "gcview_passes_total 4\n")
	assert.Contains(t, body, "gcview_dropped_arcs_total 2\n")
	assert.Contains(t, body, `gcview_segments_total{color="retract"} 2`)
	assert.Contains(t, body, "gcview_pass_duration_seconds_count 4\n")
}

func TestServerGestures(t *testing.T) {
	ts, srv := newTestServer(t)

	resp, _ := get(t, ts.URL+"/render.png?wheel=-40&drag=100,100,110,90&travel=toggle")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := srv.session.View()
	assert.InDelta(t, 1.1, view.Zoom, 1e-9)
	assert.Equal(t, toolpath.Point{X: 10, Y: -10}, view.Translate)
	assert.True(t, srv.session.DrawTravel())

	resp, _ = get(t, ts.URL+"/render.png?drag=5,5,0,0&travel=toggle")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, toolpath.Point{X: 5, Y: -15}, srv.session.View().Translate)
	assert.False(t, srv.session.DrawTravel())

	for _, query := range []string{"wheel=fast", "wheel=1,2", "drag=1,2,3", "drag=1,2,3,x"} {
		resp, _ = get(t, ts.URL+"/render.png?"+query)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
	assert.Equal(t, toolpath.Point{X: 5, Y: -15}, srv.session.View().Translate)
}

func TestWatchFile(t *testing.T) {
	path := writeProgram(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	called := make(chan struct{}, 100)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, logging.NewNop(), func() error {
			called <- struct{}{}
			return nil
		})
	}()

	// The watcher may not be running yet, so keep writing until it sees a change.
	require.Eventually(t, func() bool {
		if os.WriteFile(path, []byte(program), 0644) != nil {
			return false
		}
		select {
		case <-called:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not return")
	}
}
