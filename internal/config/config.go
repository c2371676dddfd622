package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vibe-virtuoso/backend/internal/gesture"
	"github.com/vibe-virtuoso/backend/internal/instrument"
	"github.com/vibe-virtuoso/backend/internal/session"
	"github.com/vibe-virtuoso/backend/internal/supervisor"
)

type Config struct {
	Server      ServerConfig                `yaml:"server"`
	Gesture     GestureConfig               `yaml:"gesture"`
	Detector    DetectorConfig              `yaml:"detector"`
	Supervisor  SupervisorConfig            `yaml:"supervisor"`
	Instruments map[string]InstrumentConfig `yaml:"instruments"`
	Archive     ArchiveConfig               `yaml:"archive"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxConnections int      `yaml:"max_connections"`
}

type GestureConfig struct {
	FingerWeight    float64                  `yaml:"finger_weight"`
	ThumbWeight     float64                  `yaml:"thumb_weight"`
	FistBonus       float64                  `yaml:"fist_bonus"`
	OpenHandBonus   float64                  `yaml:"open_hand_bonus"`
	Epsilon         float64                  `yaml:"epsilon"`
	MinConfidence   float64                  `yaml:"min_confidence"`
	DefaultCooldown time.Duration            `yaml:"default_cooldown"`
	Cooldowns       map[string]time.Duration `yaml:"cooldowns"`
}

const (
	DetectorNone    = "none"
	DetectorMock    = "mock"
	DetectorSidecar = "sidecar"
)

type DetectorConfig struct {
	Mode     string        `yaml:"mode"`
	Command  string        `yaml:"command"`
	Args     []string      `yaml:"args"`
	MockStep time.Duration `yaml:"mock_step"`
	// MaxFramePixels rejects frames whose declared width*height is larger.
	MaxFramePixels int `yaml:"max_frame_pixels"`
}

type SupervisorConfig struct {
	Command       string         `yaml:"command"`
	Args          []string       `yaml:"args"`
	Env           []string       `yaml:"env"`
	Dir           string         `yaml:"dir"`
	GracePeriod   time.Duration  `yaml:"grace_period"`
	SettleDelay   time.Duration  `yaml:"settle_delay"`
	SweepPatterns []string       `yaml:"sweep_patterns"`
	Recorder      RecorderConfig `yaml:"recorder"`
}

type RecorderConfig struct {
	Command     string        `yaml:"command"`
	Args        []string      `yaml:"args"`
	Dir         string        `yaml:"dir"`
	GracePeriod time.Duration `yaml:"grace_period"`
}

// InstrumentConfig overrides the built-in table of one instrument. Notes
// are keyed by gesture name.
type InstrumentConfig struct {
	Mode         string         `yaml:"mode"`
	Velocity     int            `yaml:"velocity"`
	NoteDuration time.Duration  `yaml:"note_duration"`
	Notes        map[string]int `yaml:"notes"`
}

type ArchiveConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

func defaultConfig() *Config {
	w := gesture.DefaultWeights()
	cooldowns := make(map[string]time.Duration)
	for k, d := range gesture.DefaultCooldowns() {
		cooldowns[k.String()] = d
	}
	sup := supervisor.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Port:           8000,
			Host:           "127.0.0.1",
			MaxConnections: 64,
		},
		Gesture: GestureConfig{
			FingerWeight:    w.Finger,
			ThumbWeight:     w.Thumb,
			FistBonus:       w.FistBonus,
			OpenHandBonus:   w.OpenHandBonus,
			Epsilon:         w.Epsilon,
			MinConfidence:   w.MinConfidence,
			DefaultCooldown: session.DefaultConfig().DefaultCooldown,
			Cooldowns:       cooldowns,
		},
		Detector: DetectorConfig{
			Mode:           DetectorNone,
			MockStep:       2 * time.Second,
			MaxFramePixels: session.DefaultConfig().MaxFramePixels,
		},
		Supervisor: SupervisorConfig{
			GracePeriod: sup.GracePeriod,
			SettleDelay: sup.SettleDelay,
			Recorder: RecorderConfig{
				Dir:         sup.Recorder.Dir,
				GracePeriod: sup.Recorder.GracePeriod,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// LoadEnvFile loads a .env file into the process environment without
// replacing variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides secrets and commands from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("VV_AUTH_TOKEN"); ok {
		c.Server.AuthToken = v
	}
	if v, ok := lookup("VV_WORKER_COMMAND"); ok {
		c.Supervisor.Command = v
	}
	if v, ok := lookup("VV_ARCHIVE_URL"); ok {
		c.Archive.URL = v
	}
	if v, ok := lookup("VV_ARCHIVE_TOKEN"); ok {
		c.Archive.Token = v
	}
	if v, ok := lookup("VV_DETECTOR_COMMAND"); ok && v != "" {
		c.Detector.Mode = DetectorSidecar
		c.Detector.Command = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, errors.New("server.max_connections must not be negative"))
	}

	g := c.Gesture
	if g.MinConfidence < 0 || g.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("gesture.min_confidence %v outside [0,1]", g.MinConfidence))
	}
	if g.FingerWeight < 0 || g.ThumbWeight < 0 || g.FistBonus < 0 || g.OpenHandBonus < 0 || g.Epsilon < 0 {
		errs = append(errs, errors.New("gesture weights must not be negative"))
	}
	if _, err := c.Cooldowns(); err != nil {
		errs = append(errs, err)
	}

	switch c.Detector.Mode {
	case DetectorNone, DetectorMock:
	case DetectorSidecar:
		if c.Detector.Command == "" {
			errs = append(errs, errors.New("detector.command is required in sidecar mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown detector.mode %q", c.Detector.Mode))
	}
	if c.Detector.MaxFramePixels < 0 {
		errs = append(errs, errors.New("detector.max_frame_pixels must not be negative"))
	}

	if c.Supervisor.GracePeriod <= 0 || c.Supervisor.Recorder.GracePeriod <= 0 {
		errs = append(errs, errors.New("supervisor grace periods must be positive"))
	}
	if _, err := c.InstrumentOverrides(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Weights() gesture.Weights {
	g := c.Gesture
	return gesture.Weights{
		Finger:        g.FingerWeight,
		Thumb:         g.ThumbWeight,
		FistBonus:     g.FistBonus,
		OpenHandBonus: g.OpenHandBonus,
		Epsilon:       g.Epsilon,
		MinConfidence: g.MinConfidence,
	}
}

func (c *Config) Cooldowns() (map[gesture.Kind]time.Duration, error) {
	out := make(map[gesture.Kind]time.Duration, len(c.Gesture.Cooldowns))
	for name, d := range c.Gesture.Cooldowns {
		k, err := gesture.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("gesture.cooldowns: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("gesture.cooldowns.%s must not be negative", name)
		}
		out[k] = d
	}
	return out, nil
}

func (c *Config) Session() (session.Config, error) {
	cooldowns, err := c.Cooldowns()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Weights:         c.Weights(),
		Cooldowns:       cooldowns,
		DefaultCooldown: c.Gesture.DefaultCooldown,
		MaxFramePixels:  c.Detector.MaxFramePixels,
	}, nil
}

func (c *Config) InstrumentOverrides() (map[instrument.Name]instrument.Override, error) {
	out := make(map[instrument.Name]instrument.Override, len(c.Instruments))
	for name, ic := range c.Instruments {
		n, err := instrument.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("instruments: %w", err)
		}
		o := instrument.Override{Velocity: ic.Velocity, NoteDuration: ic.NoteDuration}
		if ic.Mode != "" {
			m, err := instrument.ParseMode(ic.Mode)
			if err != nil {
				return nil, fmt.Errorf("instruments.%s: %w", name, err)
			}
			o.Mode = &m
		}
		if len(ic.Notes) > 0 {
			o.Notes = make(map[gesture.Kind]int, len(ic.Notes))
			for g, note := range ic.Notes {
				k, err := gesture.ParseKind(g)
				if err != nil {
					return nil, fmt.Errorf("instruments.%s.notes: %w", name, err)
				}
				o.Notes[k] = note
			}
		}
		out[n] = o
	}
	return out, nil
}

func (c *Config) SupervisorOptions() supervisor.Config {
	s := c.Supervisor
	return supervisor.Config{
		Command:       s.Command,
		Args:          s.Args,
		Env:           s.Env,
		Dir:           s.Dir,
		GracePeriod:   s.GracePeriod,
		SettleDelay:   s.SettleDelay,
		SweepPatterns: s.SweepPatterns,
		Recorder: supervisor.RecorderConfig{
			Command:     s.Recorder.Command,
			Args:        s.Recorder.Args,
			Dir:         s.Recorder.Dir,
			GracePeriod: s.Recorder.GracePeriod,
		},
	}
}
