package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/timeline/internal/api"
	"github.com/ivlev/timeline/internal/easing"
	"github.com/ivlev/timeline/internal/engine"
	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/publish"
	"github.com/ivlev/timeline/internal/renderer"
	"github.com/ivlev/timeline/internal/scenario"
	"github.com/ivlev/timeline/internal/system"
	"github.com/ivlev/timeline/internal/timeline"
	"github.com/ivlev/timeline/internal/watch"
)

func runValue(e *env, args []string) error {
	fs := flag.NewFlagSet("value", flag.ExitOnError)
	e.flags(fs)
	prop := fs.String("prop", "", "Property name")
	at := fs.Float64("t", 0, "Time in seconds")
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	in, err := e.interpolator()
	if err != nil {
		return err
	}
	v, err := tl.Value(*prop, *at, in)
	if err != nil {
		return err
	}
	fmt.Printf("%s @ %gs = %s\n", *prop, *at, v)
	return nil
}

func runFind(e *env, args []string) error {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	e.flags(fs)
	prop := fs.String("prop", "", "Property name")
	at := fs.Float64("t", 0, "Time in seconds")
	op := fs.String("op", "nearest", "Search: exact, nearest, next, previous, bracket")
	radius := fs.Float64("radius", -1, "Nearest search radius (negative: unbounded)")
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}

	var kf keyframe.Keyframe
	switch *op {
	case "exact":
		kf, err = tl.Keyframe(*prop, *at)
	case "nearest":
		if *radius < 0 {
			kf, err = tl.Nearest(*prop, *at)
			break
		}
		var inRange bool
		kf, inRange, err = tl.NearestWithin(*prop, *at, *radius)
		if err == nil && !inRange {
			fmt.Printf("[!] No keyframe within %gs of %gs, using the closest one\n", *radius, *at)
		}
	case "next":
		kf, err = tl.Next(*prop, *at)
	case "previous":
		kf, err = tl.Previous(*prop, *at)
	case "bracket":
		left, right, factor, err := tl.Bracket(*prop, *at)
		if err != nil {
			return err
		}
		fmt.Printf("left=%d right=%d factor=%.6f\n", left, right, factor)
		return nil
	default:
		return fmt.Errorf("unknown search %q", *op)
	}
	if err != nil {
		return err
	}
	printKeyframe(kf)
	return nil
}

func printKeyframe(kf keyframe.Keyframe) {
	ease := kf.Ease
	if ease == "" {
		ease = easing.Linear
	}
	fmt.Printf("[*] t=%-8g value=%-24s ease=%s\n", kf.Time, kf.Value, ease)
}

func runKeys(e *env, args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	e.flags(fs)
	prop := fs.String("prop", "", "Property name (default: all)")
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	names := tl.PropertyNames()
	if *prop != "" {
		names = []string{*prop}
	}
	for _, name := range names {
		frames, err := tl.Keyframes(name)
		if err != nil {
			return err
		}
		fmt.Printf("--- %s (%d keyframes) ---\n", name, len(frames))
		for _, kf := range frames {
			if kf.Ease != "" && !easing.Known(kf.Ease) {
				fmt.Printf("[!] Unknown ease %q at %gs is treated as linear\n", kf.Ease, kf.Time)
			}
			printKeyframe(kf)
		}
	}
	return nil
}

// gridFlags registers the sampling interval flags.
func gridFlags(fs *flag.FlagSet) (start, end, step *float64) {
	start = fs.Float64("start", 0, "Grid start (default: first keyframe)")
	end = fs.Float64("end", 0, "Grid end (default: last keyframe)")
	step = fs.Float64("step", 0, "Grid step (default: one frame)")
	return
}

// grid fills unset bounds from the timeline span.
func (e *env) grid(fs *flag.FlagSet, tl *timeline.Timeline, start, end, step float64) (engine.Grid, error) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	first, last, ok := engine.Span(tl)
	if (!set["start"] || !set["end"]) && !ok {
		return engine.Grid{}, keyframe.ErrEmptySequence
	}
	g := engine.Grid{Start: first, End: last, Step: e.cfg.SampleStep()}
	if set["start"] {
		g.Start = start
	}
	if set["end"] {
		g.End = end
	}
	if step > 0 {
		g.Step = step
	}
	return g, nil
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (e *env) sample(fs *flag.FlagSet, tl *timeline.Timeline, props string, start, end, step float64) ([]engine.Track, error) {
	grid, err := e.grid(fs, tl, start, end, step)
	if err != nil {
		return nil, err
	}
	in, err := e.interpolator()
	if err != nil {
		return nil, err
	}
	sampler := engine.NewSampler(e.cfg.Workers)
	sampler.Log = e.log.WithName("engine")
	tracks, err := sampler.Sample(context.Background(), tl, splitNames(props), grid, in)
	if err != nil {
		return nil, err
	}
	e.sampled = sampler.Stats()
	return tracks, nil
}

func runSample(e *env, args []string) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	e.flags(fs)
	props := fs.String("props", "", "Comma-separated properties (default: all)")
	out := fs.String("out", "", "Write JSON to this file instead of stdout")
	start, end, step := gridFlags(fs)
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	tracks, err := e.sample(fs, tl, *props, *start, *end, *step)
	if err != nil {
		return err
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tracks); err != nil {
		return err
	}
	if *out != "" {
		fmt.Printf("[+] Samples written: %s\n", *out)
	}
	return nil
}

func runPlot(e *env, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	e.flags(fs)
	prop := fs.String("prop", "", "Property name")
	component := fs.Int("component", 0, "Tuple element to plot")
	out := fs.String("out", "", "PNG path (default: output/<property>.png)")
	width := fs.Int("width", 0, "Image width")
	height := fs.Int("height", 0, "Image height")
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	seq, err := tl.Sequence(*prop)
	if err != nil {
		return err
	}
	in, err := e.interpolator()
	if err != nil {
		return err
	}

	opts := renderer.PlotOptions{
		Width:     e.cfg.Width,
		Height:    e.cfg.Height,
		Title:     *prop,
		Component: *component,
		Interp:    in,
	}
	if *width > 0 {
		opts.Width = *width
	}
	if *height > 0 {
		opts.Height = *height
	}
	img, err := renderer.Plot(seq, opts)
	if err != nil {
		return err
	}
	defer system.PutImage(img)

	path := *out
	if path == "" {
		os.MkdirAll(e.cfg.OutputDir, 0755)
		path = filepath.Join(e.cfg.OutputDir, strings.ReplaceAll(*prop, " ", "_")+".png")
	}
	if err := renderer.WritePNG(path, img); err != nil {
		return err
	}
	fmt.Printf("[+] Plot written: %s\n", path)
	return nil
}

func runExpr(e *env, args []string) error {
	fs := flag.NewFlagSet("expr", flag.ExitOnError)
	e.flags(fs)
	prop := fs.String("prop", "", "Property name")
	variable := fs.String("var", "on", "ffmpeg variable: on (frame number) or t (seconds)")
	component := fs.Int("component", 0, "Tuple element to export")
	segments := fs.Int("segments", renderer.DefaultSegments, "Linear pieces per eased span")
	zoompan := fs.String("zoompan", "", "Build a zoompan filter from zoom,x,y properties")
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	opts := renderer.ExprOptions{Variable: *variable, Component: *component, Segments: *segments}
	if *variable == "on" {
		opts.FPS = e.cfg.FPS
	}

	expr := func(name string) (string, error) {
		seq, err := tl.Sequence(name)
		if err != nil {
			return "", err
		}
		return renderer.Expression(seq, opts)
	}

	if *zoompan != "" {
		names := splitNames(*zoompan)
		if len(names) != 3 {
			return fmt.Errorf("-zoompan needs three properties, got %d", len(names))
		}
		exprs := make([]string, 3)
		for i, name := range names {
			if exprs[i], err = expr(name); err != nil {
				return err
			}
		}
		fmt.Println(renderer.ZoomPanFilter(exprs[0], exprs[1], exprs[2], e.cfg.Width, e.cfg.Height, e.cfg.FPS))
		return nil
	}

	out, err := expr(*prop)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runConvert(e *env, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	e.flags(fs)
	out := fs.String("out", "", "Output path; .json writes JSON, anything else YAML")
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		os.MkdirAll(e.cfg.OutputDir, 0755)
		path = scenario.GenerateScenarioPath(e.cfg.OutputDir, scenario.FormatJSON)
	}
	if err := scenario.WriteScenario(scenario.FromTimeline(tl), path); err != nil {
		return err
	}
	fmt.Printf("[+] Scenario written: %s\n", path)
	return nil
}

func runRetime(e *env, args []string) error {
	fs := flag.NewFlagSet("retime", flag.ExitOnError)
	e.flags(fs)
	duration := fs.Float64("duration", 0, "Target duration in seconds")
	out := fs.String("out", "", "Output path (default: timestamped file in the output directory)")
	align := fs.Bool("align", true, "Align keyframes to frame boundaries")
	if err := e.parse(fs, args); err != nil {
		return err
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	fps := 0
	if *align {
		fps = e.cfg.FPS
	}
	retimed, err := engine.Retime(tl, *duration, fps)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		os.MkdirAll(e.cfg.OutputDir, 0755)
		path = scenario.GenerateScenarioPath(e.cfg.OutputDir, scenario.FormatYAML)
	}
	if err := scenario.WriteScenario(scenario.FromTimeline(retimed), path); err != nil {
		return err
	}
	fmt.Printf("[+] Retimed to %.2fs: %s\n", *duration, path)
	return nil
}

func runServe(e *env, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	e.flags(fs)
	addr := fs.String("addr", "", "Listen address (default from config)")
	watchFiles := fs.Bool("watch", false, "Reload the scenario when it changes")
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if *addr != "" {
		e.cfg.HTTP.Addr = *addr
	}
	e.cfg.HTTP.Watch = e.cfg.HTTP.Watch || *watchFiles

	system.InitResourceLimits(e.log.WithName("system"))

	path, err := e.scenarioPath()
	if err != nil {
		return err
	}
	tl, err := loadTimeline(path, e)
	if err != nil {
		return err
	}

	srv := api.NewServer(tl, e.log.WithName("api"))
	if e.scriptPath != "" {
		in, err := e.interpolator()
		if err != nil {
			return err
		}
		srv.SetInterpolator("script", in)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if e.cfg.HTTP.Watch {
		paths := []string{path}
		if e.scriptPath != "" {
			paths = append(paths, e.scriptPath)
		}
		w, err := watch.NewWatcher(e.cfg.HTTP.Delay, paths...)
		if err != nil {
			return err
		}
		defer w.Close()
		go e.reload(ctx, w, srv, path)
	}

	httpServer := &http.Server{Addr: e.cfg.HTTP.Addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	e.log.Info("starting http server", "listen-addr", e.cfg.HTTP.Addr, "scenario", path, "watch", e.cfg.HTTP.Watch)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// reload swaps in the scenario or script each time the watcher reports a
// change. Files that fail to load leave the served state untouched.
func (e *env) reload(ctx context.Context, w *watch.Watcher, srv *api.Server, path string) {
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-w.Events:
			if !ok {
				return
			}
			if e.scriptPath != "" && filepath.Clean(name) == filepath.Clean(e.scriptPath) {
				in, err := e.interpolator()
				if err != nil {
					e.log.Error(err, "script reload failed", "path", name)
					continue
				}
				srv.SetInterpolator("script", in)
				e.log.Info("script reloaded", "path", name)
				continue
			}
			tl, err := loadTimeline(path, e)
			if err != nil {
				e.log.Error(err, "scenario reload failed", "path", path)
				continue
			}
			srv.Swap(tl)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			e.log.Error(err, "watcher error")
		}
	}
}

func runPublish(e *env, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	e.flags(fs)
	props := fs.String("props", "", "Comma-separated properties (default: all)")
	pace := fs.Float64("pace", 1, "Playback speed factor for waits between frames; 0 sends at once")
	topic := fs.String("topic", "", "Topic prefix (default from config)")
	start, end, step := gridFlags(fs)
	if err := e.parse(fs, args); err != nil {
		return err
	}
	if *topic != "" {
		e.cfg.MQTT.Topic = *topic
	}

	tl, err := e.openTimeline()
	if err != nil {
		return err
	}
	tracks, err := e.sample(fs, tl, *props, *start, *end, *step)
	if err != nil {
		return err
	}

	client, err := publish.Connect(e.cfg.MQTT, e.log.WithName("mqtt"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := publish.NewPublisher(client, e.cfg.MQTT)
	p.Pace = *pace
	p.Log = e.log.WithName("publish")
	n, err := p.Publish(ctx, tracks)
	fmt.Printf("[>] Published %d frames to %s/...\n", n, e.cfg.MQTT.Topic)
	return err
}

func runEasings(e *env, args []string) error {
	fs := flag.NewFlagSet("easings", flag.ExitOnError)
	e.flags(fs)
	if err := e.parse(fs, args); err != nil {
		return err
	}
	fmt.Println(easing.Hold)
	for _, name := range easing.Names() {
		fmt.Println(name)
	}
	return nil
}
