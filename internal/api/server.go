// Package api serves timeline queries over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/gorilla/handlers"

	"github.com/ivlev/timeline/internal/easing"
	"github.com/ivlev/timeline/internal/engine"
	"github.com/ivlev/timeline/internal/interp"
	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/renderer"
	"github.com/ivlev/timeline/internal/scenario"
	"github.com/ivlev/timeline/internal/system"
	"github.com/ivlev/timeline/internal/timeline"
)

var errBadRequest = errors.New("bad request")

// maxBody bounds PUT payloads.
const maxBody = 1 << 20

// Server answers queries against one timeline. The timeline is guarded by a
// read-write lock: queries share it, edits and Swap hold it exclusively.
type Server struct {
	mu sync.RWMutex
	tl *timeline.Timeline

	// Interpolators are looked up by name before the built-in ones.
	Interpolators map[string]keyframe.Interpolator
	Log           logr.Logger
}

// NewServer creates a server for tl.
func NewServer(tl *timeline.Timeline, log logr.Logger) *Server {
	return &Server{
		tl:            tl,
		Interpolators: make(map[string]keyframe.Interpolator),
		Log:           log,
	}
}

// Swap replaces the served timeline, e.g. after the scenario file changed.
func (s *Server) Swap(tl *timeline.Timeline) {
	s.mu.Lock()
	s.tl = tl
	s.mu.Unlock()
	s.Log.Info("timeline swapped", "name", tl.Name(), "properties", len(tl.PropertyNames()))
}

// SetInterpolator registers or replaces a named interpolator.
func (s *Server) SetInterpolator(name string, in keyframe.Interpolator) {
	s.mu.Lock()
	s.Interpolators[name] = in
	s.mu.Unlock()
}

// Snapshot returns the served timeline as a scenario document.
func (s *Server) Snapshot() *scenario.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scenario.FromTimeline(s.tl)
}

// Handler returns the routes wrapped with panic recovery, access logging and
// response compression.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /timeline", s.handleTimeline)
	mux.HandleFunc("GET /easings", s.handleEasings)
	mux.HandleFunc("GET /properties", s.handleProperties)
	mux.HandleFunc("GET /properties/{name}/keyframes", s.handleKeyframes)
	mux.HandleFunc("PUT /properties/{name}/keyframes", s.handlePutKeyframes)
	mux.HandleFunc("DELETE /properties/{name}/keyframes", s.handleDeleteKeyframes)
	mux.HandleFunc("GET /properties/{name}/value", s.handleValue)
	mux.HandleFunc("GET /properties/{name}/nearest", s.handleNearest)
	mux.HandleFunc("GET /properties/{name}/next", s.handleNext)
	mux.HandleFunc("GET /properties/{name}/previous", s.handlePrevious)
	mux.HandleFunc("GET /properties/{name}/samples", s.handleSamples)
	mux.HandleFunc("GET /properties/{name}/plot.png", s.handlePlot)

	var h http.Handler = mux
	h = handlers.CompressHandler(h)
	h = handlers.CombinedLoggingHandler(logWriter{s.Log}, h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.Log}))(h)
	return h
}

func (s *Server) interpolator(name string) (keyframe.Interpolator, error) {
	if in, ok := s.Interpolators[name]; ok {
		return in, nil
	}
	in, err := interp.New(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return in, nil
}

func (s *Server) handleTimeline(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Snapshot())
}

func (s *Server) handleEasings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, append([]string{easing.Hold}, easing.Names()...))
}

func (s *Server) handleProperties(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	names := s.tl.PropertyNames()
	s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleKeyframes(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	frames, err := s.tl.Keyframes(r.PathValue("name"))
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, frames)
}

// handlePutKeyframes adds or replaces keyframes. The body is one keyframe or
// a list of them.
func (s *Server) handlePutKeyframes(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var frames []keyframe.Keyframe
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &frames)
	} else {
		var kf keyframe.Keyframe
		err = json.Unmarshal(body, &kf)
		frames = []keyframe.Keyframe{kf}
	}
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	name := r.PathValue("name")
	s.mu.Lock()
	err = s.tl.AddKeyframes(name, frames)
	var out []keyframe.Keyframe
	if err == nil {
		out, err = s.tl.Keyframes(name)
	}
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteKeyframes(w http.ResponseWriter, r *http.Request) {
	index, err := intParam(r, "index", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	count, err := intParam(r, "count", 1)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	removed, err := s.tl.RemoveKeyframes(r.PathValue("name"), index, count)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type valueResponse struct {
	Property string         `json:"property"`
	Time     float64        `json:"time"`
	Value    keyframe.Value `json:"value"`
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	t, err := floatParam(r, "t")
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := r.PathValue("name")

	s.mu.RLock()
	in, err := s.interpolator(r.URL.Query().Get("interp"))
	var v keyframe.Value
	if err == nil {
		v, err = s.tl.Value(name, t, in)
	}
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, valueResponse{Property: name, Time: t, Value: v})
}

type nearestResponse struct {
	Index    int               `json:"index"`
	InRange  bool              `json:"inRange"`
	Keyframe keyframe.Keyframe `json:"keyframe"`
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	t, err := floatParam(r, "t")
	if err != nil {
		s.writeError(w, err)
		return
	}
	radius := -1.0
	if r.URL.Query().Has("radius") {
		if radius, err = floatParam(r, "radius"); err != nil {
			s.writeError(w, err)
			return
		}
	}
	name := r.PathValue("name")

	s.mu.RLock()
	defer s.mu.RUnlock()

	var resp nearestResponse
	if radius < 0 {
		resp.Index, err = s.tl.NearestIndex(name, t)
		resp.InRange = true
	} else {
		resp.Index, resp.InRange, err = s.tl.NearestIndexWithin(name, t, radius)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	seq, _ := s.tl.Sequence(name)
	if resp.Keyframe, err = seq.KeyframeAt(resp.Index); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.neighbour(w, r, (*timeline.Timeline).Next)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.neighbour(w, r, (*timeline.Timeline).Previous)
}

func (s *Server) neighbour(w http.ResponseWriter, r *http.Request, find func(*timeline.Timeline, string, float64) (keyframe.Keyframe, error)) {
	t, err := floatParam(r, "t")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.RLock()
	kf, err := find(s.tl, r.PathValue("name"), t)
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, kf)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	var grid engine.Grid
	var err error
	for _, p := range []struct {
		key string
		dst *float64
	}{{"start", &grid.Start}, {"end", &grid.End}, {"step", &grid.Step}} {
		if *p.dst, err = floatParam(r, p.key); err != nil {
			s.writeError(w, err)
			return
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	in, err := s.interpolator(r.URL.Query().Get("interp"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	tracks, err := engine.NewSampler(1).Sample(r.Context(), s.tl, []string{r.PathValue("name")}, grid, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tracks[0])
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	width, err := intParam(r, "width", 640)
	if err != nil {
		s.writeError(w, err)
		return
	}
	height, err := intParam(r, "height", 240)
	if err != nil {
		s.writeError(w, err)
		return
	}
	component, err := intParam(r, "component", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := r.PathValue("name")

	s.mu.RLock()
	seq, err := s.tl.Sequence(name)
	var in keyframe.Interpolator
	if err == nil {
		in, err = s.interpolator(r.URL.Query().Get("interp"))
	}
	if err != nil {
		s.mu.RUnlock()
		s.writeError(w, err)
		return
	}
	img, err := renderer.Plot(seq, renderer.PlotOptions{
		Width: width, Height: height, Title: name, Component: component, Interp: in,
	})
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer system.PutImage(img)

	var buf bytes.Buffer
	if err := renderer.EncodePNG(&buf, img); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func floatParam(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", errBadRequest, key)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, key, err)
	}
	return f, nil
}

func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, key, err)
	}
	return n, nil
}

// statusOf maps errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, timeline.ErrPropertyNotFound), errors.Is(err, keyframe.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, keyframe.ErrEmptySequence), errors.Is(err, keyframe.ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest), errors.Is(err, keyframe.ErrInvalidTime),
		errors.Is(err, keyframe.ErrIndexOutOfRange), errors.Is(err, engine.ErrInvalidGrid),
		errors.Is(err, renderer.ErrPlotSize):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		s.Log.Error(err, "request failed")
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.Log.Error(err, "error encoding response")
	}
}

// logWriter feeds access log lines into the logger.
type logWriter struct{ log logr.Logger }

func (l logWriter) Write(p []byte) (int, error) {
	l.log.V(1).Info(strings.TrimSpace(string(p)))
	return len(p), nil
}

type recoveryLogger struct{ log logr.Logger }

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(fmt.Errorf("%s", fmt.Sprint(v...)), "handler panicked")
}
