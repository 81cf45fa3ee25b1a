package heap

import (
	"fmt"
	"math"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"
)

// DefaultCapacity is the capacity used when a Config leaves it unset (1 MiB).
const DefaultCapacity = 1 << 20

// Backing selects where the heap region comes from.
type Backing string

const (
	// BackingMmap maps an anonymous private region. On platforms without
	// mmap support it behaves like BackingGo.
	BackingMmap Backing = "mmap"
	// BackingGo allocates the region as a Go byte slice.
	BackingGo Backing = "go"
)

// Size is a byte count that can be written as "1MB", "512KB" or a plain
// number of bytes in configuration files.
type Size bytesize.ByteSize

// ParseSize parses a byte count such as "64KB", "1.5MB" or "4096". The
// result must be finite and fit in an int.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	num, unit := s, 1.0
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		// Split off the unit and let bytesize decode it.
		i := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
		if i <= 0 {
			return 0, fmt.Errorf("invalid size %q", s)
		}
		u, err := bytesize.Parse("1" + strings.TrimSpace(s[i:]))
		if err != nil {
			return 0, fmt.Errorf("parse size %q: %w", s, err)
		}
		num, unit = strings.TrimSpace(s[:i]), float64(u)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	n *= unit
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0):
		return 0, fmt.Errorf("size %q is not finite", s)
	case n < 0:
		return 0, fmt.Errorf("negative size %q", s)
	case n >= math.MaxInt:
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return Size(n), nil
}

// Bytes returns the size as a whole number of bytes.
func (s Size) Bytes() int {
	return int(s)
}

func (s Size) String() string {
	return bytesize.ByteSize(s).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := ParseSize(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// Config configures a Heap.
type Config struct {
	// Capacity is the total size of the region, block metadata included.
	Capacity Size `yaml:"capacity"`

	// GCThreshold, when non-zero, runs a collection before an allocation
	// that would bring the bytes allocated since the last collection above
	// it.
	GCThreshold Size `yaml:"gc_threshold"`

	// Backing selects where the region comes from.
	Backing Backing `yaml:"backing"`

	// Logger receives collection traces at debug level and fatal errors at
	// error level. Nil discards everything.
	Logger *slog.Logger `yaml:"-"`

	// OnFatal is called with the error before the heap panics on a fatal
	// condition.
	OnFatal func(error) `yaml:"-"`
}

// DefaultConfig returns the configuration used by New when fields are left
// unset.
func DefaultConfig() Config {
	return Config{
		Capacity: DefaultCapacity,
		Backing:  defaultBacking,
	}
}

// ParseConfig parses a YAML configuration. Unset fields take their default
// values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse heap config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read heap config: %w", err)
	}
	return ParseConfig(data)
}

func (c *Config) setDefaults() {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Backing == "" {
		c.Backing = defaultBacking
	}
}

func (c Config) validate() error {
	switch c.Backing {
	case "", BackingMmap, BackingGo:
	default:
		return fmt.Errorf("unknown heap backing %q", c.Backing)
	}
	if c.Capacity.Bytes() < 0 || c.GCThreshold.Bytes() < 0 {
		return fmt.Errorf("heap size does not fit in an int")
	}
	return nil
}
