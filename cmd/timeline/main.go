package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ivlev/timeline/internal/config"
	"github.com/ivlev/timeline/internal/engine"
	"github.com/ivlev/timeline/internal/interp"
	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/logging"
	"github.com/ivlev/timeline/internal/scenario"
	"github.com/ivlev/timeline/internal/system"
	"github.com/ivlev/timeline/internal/timeline"
)

// BuildVersion is set with -ldflags "-X main.BuildVersion=...".
var BuildVersion = "dev"

type command struct {
	help string
	run  func(e *env, args []string) error
}

var commands = map[string]command{
	"value":   {"print a property's value at a time", runValue},
	"find":    {"exact, nearest, next, previous or bracket search", runFind},
	"keys":    {"list a property's keyframes", runKeys},
	"sample":  {"evaluate properties over a time grid", runSample},
	"plot":    {"draw a property curve to PNG", runPlot},
	"expr":    {"export a property as an ffmpeg expression", runExpr},
	"convert": {"rewrite a scenario as JSON or YAML", runConvert},
	"retime":  {"scale a scenario to a new duration", runRetime},
	"serve":   {"serve timeline queries over HTTP", runServe},
	"publish": {"publish sampled values to MQTT", runPublish},
	"easings": {"list easing curve names", runEasings},
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: timeline <command> [flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'timeline <command> -h' for command flags.\n")
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "[-] Unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	e := &env{name: os.Args[1], started: time.Now()}
	if err := cmd.run(e, os.Args[2:]); err != nil {
		e.log.Fatal(err, "command failed", "command", e.name)
	}
	if e.stats {
		e.report()
	}
}

// env carries the settings shared by all commands.
type env struct {
	name    string
	started time.Time

	configPath string
	input      string
	interpName string
	scriptPath string
	verbose    bool
	stats      bool

	cfg *config.Config
	log logging.FatalLogr

	sampled engine.Stats
}

func (e *env) flags(fs *flag.FlagSet) {
	fs.StringVar(&e.configPath, "config", "", "YAML config file")
	fs.StringVar(&e.input, "input", "", "Scenario file (default: newest file in the input directory)")
	fs.StringVar(&e.interpName, "interp", "", "Interpolator: "+strings.Join(interp.Names, ", "))
	fs.StringVar(&e.scriptPath, "script", "", "Tengo interpolator script (overrides -interp)")
	fs.BoolVar(&e.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&e.stats, "stats", false, "Print a performance report")
}

// parse parses args and loads the configuration.
func (e *env) parse(fs *flag.FlagSet, args []string) error {
	e.log = logging.FatalLogr{Logger: logging.New("timeline", false)}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if e.configPath != "" {
		loaded, err := config.Load(e.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if e.input != "" {
		cfg.InputPath = e.input
	}
	if e.interpName != "" {
		cfg.Interpolator = e.interpName
	}
	cfg.Verbose = cfg.Verbose || e.verbose
	cfg.ShowStats = cfg.ShowStats || e.stats
	cfg.BuildVersion = BuildVersion
	e.stats = cfg.ShowStats
	e.cfg = cfg

	e.log = logging.FatalLogr{Logger: logging.New("timeline", cfg.Verbose)}
	return nil
}

// scenarioPath resolves the input file.
func (e *env) scenarioPath() (string, error) {
	if e.cfg.InputPath != "" {
		return e.cfg.InputPath, nil
	}
	latest, err := scenario.FindLatestScenario(e.cfg.InputDir)
	if err != nil {
		return "", fmt.Errorf("%w. Put a scenario into %s/", err, e.cfg.InputDir)
	}
	fmt.Printf("[*] Selected scenario: %s\n", latest)
	return latest, nil
}

func (e *env) openTimeline() (*timeline.Timeline, error) {
	path, err := e.scenarioPath()
	if err != nil {
		return nil, err
	}
	return loadTimeline(path, e)
}

func loadTimeline(path string, e *env) (*timeline.Timeline, error) {
	s, err := scenario.ReadScenario(path)
	if err != nil {
		return nil, err
	}
	tl, err := s.Timeline()
	if err != nil {
		return nil, err
	}
	tl.WithLogger(e.log.WithName("timeline"))
	return tl, nil
}

func (e *env) interpolator() (keyframe.Interpolator, error) {
	if e.scriptPath != "" {
		src, err := os.ReadFile(e.scriptPath)
		if err != nil {
			return nil, err
		}
		return interp.Script(string(src))
	}
	return interp.New(e.cfg.Interpolator)
}

func (e *env) report() {
	total := time.Since(e.started)
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Command: %s\n"+
			"Total Time: %.3fs\n",
		BuildVersion, e.name, total.Seconds(),
	)
	if e.sampled.Points > 0 {
		report += fmt.Sprintf(
			"Sampling: %d tracks, %d points in %.3fs\n"+
				"Throughput: %.0f points/s\n",
			e.sampled.Tracks, e.sampled.Points, e.sampled.Elapsed.Seconds(), e.sampled.PointsPerSecond(),
		)
	}
	if st, err := system.ReadStats(); err == nil {
		report += fmt.Sprintf("Memory: RSS %s | Host %s (%.1f%% used)\n",
			system.FormatBytes(st.RSS), system.FormatBytes(st.HostTotal), st.HostUsedPct)
	} else {
		e.log.V(1).Info("stats unavailable", "error", err.Error())
	}
	report += "----------------------------\n"
	fmt.Print(report)
}
