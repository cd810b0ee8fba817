// Package config loads objectcore runtime settings from TOML.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/objectcore/errors"
)

// Memory backends.
const (
	BackendHeap   = "heap"
	BackendWazero = "wazero"
)

// Config is the runtime configuration.
type Config struct {
	GC       GC       `toml:"gc"`
	Registry Registry `toml:"registry"`
	Memory   Memory   `toml:"memory"`
	Log      Log      `toml:"log"`
}

// GC configures the collector.
type GC struct {
	// PurgeTimeLimit is the budget of one incremental purge call.
	PurgeTimeLimit       Duration `toml:"purge_time_limit"`
	ObjectsPerClockCheck int      `toml:"objects_per_clock_check"`
	// FullPurge releases garbage inside CollectGarbage instead of leaving it
	// to incremental purge calls.
	FullPurge bool `toml:"full_purge"`
	// AutoInterval is how often Tick runs a collection. Zero disables it.
	AutoInterval Duration `toml:"auto_interval"`
}

// Registry configures the object registry.
type Registry struct {
	InitialCapacity int `toml:"initial_capacity"`
	MaxObjects      int `toml:"max_objects"` // 0 = unlimited
}

// Memory configures instance memory.
type Memory struct {
	Backend      string `toml:"backend"`
	InitialPages uint32 `toml:"initial_pages"`
	MaxPages     uint32 `toml:"max_pages"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Duration is a time.Duration written as a Go duration string, e.g. "2ms".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GC: GC{
			PurgeTimeLimit:       Duration(2 * time.Millisecond),
			ObjectsPerClockCheck: 100,
			AutoInterval:         Duration(60 * time.Second),
		},
		Registry: Registry{
			InitialCapacity: 1024,
		},
		Memory: Memory{
			Backend:      BackendHeap,
			InitialPages: 1,
			MaxPages:     1024,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads and validates a TOML file. Keys it omits keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}
	return Parse(data)
}

// Parse decodes and validates TOML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil {
		return nil, errors.ParseFailed("config", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Path(keys...).
			Detail("unknown keys %s", strings.Join(keys, ", ")).
			Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var err error
	invalid := func(key, format string, args ...any) {
		err = multierr.Append(err, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(strings.Split(key, ".")...).
			Detail(format, args...).
			Build())
	}

	if c.GC.PurgeTimeLimit < 0 {
		invalid("gc.purge_time_limit", "must not be negative")
	}
	if c.GC.ObjectsPerClockCheck <= 0 {
		invalid("gc.objects_per_clock_check", "must be positive, got %d", c.GC.ObjectsPerClockCheck)
	}
	if c.GC.AutoInterval < 0 {
		invalid("gc.auto_interval", "must not be negative")
	}
	if c.Registry.InitialCapacity < 0 {
		invalid("registry.initial_capacity", "must not be negative")
	}
	if c.Registry.MaxObjects < 0 {
		invalid("registry.max_objects", "must not be negative")
	}
	switch c.Memory.Backend {
	case BackendHeap, BackendWazero:
	default:
		invalid("memory.backend", "unknown backend %q", c.Memory.Backend)
	}
	if c.Memory.InitialPages == 0 {
		invalid("memory.initial_pages", "must be at least 1")
	}
	if c.Memory.MaxPages < c.Memory.InitialPages {
		invalid("memory.max_pages", "%d is below initial_pages %d", c.Memory.MaxPages, c.Memory.InitialPages)
	}
	if c.Memory.MaxPages > 65536 {
		invalid("memory.max_pages", "%d exceeds the 4 GiB address space", c.Memory.MaxPages)
	}
	if _, lerr := zapcore.ParseLevel(c.Log.Level); lerr != nil {
		invalid("log.level", "%v", lerr)
	}
	return err
}

// LogLevel returns the parsed log level, or info if it does not parse.
func (c *Config) LogLevel() zapcore.Level {
	l, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
