// Package config loads command settings from YAML.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	InputPath    string  `yaml:"input"`
	InputDir     string  `yaml:"input_dir"`
	OutputDir    string  `yaml:"output_dir"`
	Workers      int     `yaml:"workers"`
	FPS          int     `yaml:"fps"`
	Step         float64 `yaml:"step"`
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Interpolator string  `yaml:"interpolator"`
	Verbose      bool    `yaml:"verbose"`
	ShowStats    bool    `yaml:"stats"`
	BuildVersion string  `yaml:"-"`

	HTTP HTTP `yaml:"http"`
	MQTT MQTT `yaml:"mqtt"`
}

type HTTP struct {
	Addr  string        `yaml:"addr"`
	Watch bool          `yaml:"watch"`
	Delay time.Duration `yaml:"reload_delay"`
}

type MQTT struct {
	URL       string        `yaml:"url"`
	ClientID  string        `yaml:"client_id"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Topic     string        `yaml:"topic"`
	QoS       byte          `yaml:"qos"`
	KeepAlive time.Duration `yaml:"keep_alive"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the settings used when no file overrides them.
func Default() *Config {
	return &Config{
		InputDir:  "input/timelines",
		OutputDir: "output",
		Workers:   runtime.NumCPU(),
		FPS:       30,
		Width:     960,
		Height:    360,
		HTTP: HTTP{
			Addr:  "localhost:8080",
			Delay: 100 * time.Millisecond,
		},
		MQTT: MQTT{
			URL:       "tcp://localhost:1883",
			ClientID:  "timeline",
			Topic:     "timeline",
			QoS:       1,
			KeepAlive: 30 * time.Second,
			Timeout:   5 * time.Second,
		},
	}
}

// Load reads a YAML file over Default. Keys missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the commands cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.FPS < 1:
		return fmt.Errorf("fps must be at least 1, got %d", c.FPS)
	case c.Step < 0:
		return fmt.Errorf("step must not be negative, got %v", c.Step)
	case c.MQTT.QoS > 2:
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

// SampleStep is the grid step: Step when set, otherwise one frame.
func (c *Config) SampleStep() float64 {
	if c.Step > 0 {
		return c.Step
	}
	return 1 / float64(c.FPS)
}
