package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries runtime options for sysmond.
type Config struct {
	Bind        string
	Port        int
	CPUWindow   time.Duration
	DiskPath    string
	Watch       bool
	WatchEvery  time.Duration
	ShowVersion bool
}

// fileConfig is the YAML shape. Durations are plain integers, seconds or
// milliseconds as named; zero means "not set".
type fileConfig struct {
	Bind          string `yaml:"bind"`
	Port          int    `yaml:"port"`
	CPUWindowMS   int    `yaml:"cpu_window_ms"`
	DiskPath      string `yaml:"disk_path"`
	WatchEverySec int    `yaml:"watch_every_sec"`
}

func Default() Config {
	return Config{
		Bind:       "0.0.0.0",
		Port:       8000,
		CPUWindow:  500 * time.Millisecond,
		DiskPath:   "/",
		WatchEvery: 2 * time.Second,
	}
}

// Addr is the listen address in host:port form.
func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Bind, c.Port) }

// FromFlags builds the config: defaults, then an optional YAML file named by
// -config, then explicitly set flags, then environment overrides. Later
// layers win.
func FromFlags(args []string) (Config, error) {
	flagCfg := Default()
	fs := flag.NewFlagSet("sysmond", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(&flagCfg.Bind, "bind", flagCfg.Bind, "bind address")
	fs.IntVar(&flagCfg.Port, "port", flagCfg.Port, "listen port")
	fs.DurationVar(&flagCfg.CPUWindow, "cpu-window", flagCfg.CPUWindow, "CPU sampling window (100ms-1s)")
	fs.StringVar(&flagCfg.DiskPath, "disk-path", flagCfg.DiskPath, "default disk path for the aggregate view")
	fs.BoolVar(&flagCfg.Watch, "watch", false, "run the live terminal dashboard instead of the server")
	fs.DurationVar(&flagCfg.WatchEvery, "watch-every", flagCfg.WatchEvery, "dashboard refresh interval")
	fs.BoolVar(&flagCfg.ShowVersion, "version", false, "show version and exit")
	if err := fs.Parse(args); err != nil {
		return flagCfg, err
	}

	cfg := flagCfg
	if *configPath != "" {
		cfg = Default()
		if err := cfg.loadFile(*configPath); err != nil {
			return cfg, err
		}
		// Flags given explicitly beat the file.
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind":
				cfg.Bind = flagCfg.Bind
			case "port":
				cfg.Port = flagCfg.Port
			case "cpu-window":
				cfg.CPUWindow = flagCfg.CPUWindow
			case "disk-path":
				cfg.DiskPath = flagCfg.DiskPath
			case "watch-every":
				cfg.WatchEvery = flagCfg.WatchEvery
			}
		})
		cfg.Watch = flagCfg.Watch
		cfg.ShowVersion = flagCfg.ShowVersion
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if fc.Bind != "" {
		c.Bind = fc.Bind
	}
	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.CPUWindowMS != 0 {
		c.CPUWindow = time.Duration(fc.CPUWindowMS) * time.Millisecond
	}
	if fc.DiskPath != "" {
		c.DiskPath = fc.DiskPath
	}
	if fc.WatchEverySec != 0 {
		c.WatchEvery = time.Duration(fc.WatchEverySec) * time.Second
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SYSMOND_BIND"); v != "" {
		c.Bind = v
	}
	if v := os.Getenv("SYSMOND_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("SYSMOND_CPU_WINDOW"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.CPUWindow = parsed
		}
	}
	if v := os.Getenv("SYSMOND_DISK_PATH"); v != "" {
		c.DiskPath = v
	}
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1-65535, got %d", c.Port)
	}
	if c.CPUWindow < 100*time.Millisecond || c.CPUWindow > time.Second {
		return fmt.Errorf("cpu window must be between 100ms and 1s, got %s", c.CPUWindow)
	}
	if c.DiskPath == "" {
		return fmt.Errorf("disk path cannot be empty")
	}
	if c.WatchEvery < 500*time.Millisecond {
		return fmt.Errorf("watch interval must be at least 500ms, got %s", c.WatchEvery)
	}
	return nil
}
