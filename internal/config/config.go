// Package config loads the driver configuration from YAML.
package config

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DeviceID   string     `yaml:"device_id"`
	MQTT       MQTT       `yaml:"mqtt"`
	Supervisor Supervisor `yaml:"supervisor"`
	Mission    Mission    `yaml:"mission"`
	Frames     Frames     `yaml:"frames"`
	Params     Params     `yaml:"params"`
	Status     Status     `yaml:"status"`
	Log        Log        `yaml:"log"`
}

type MQTT struct {
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	PrivateKey  string        `yaml:"private_key"`
	Algorithm   string        `yaml:"algorithm"`
	Audience    string        `yaml:"audience"`
	QoS         byte          `yaml:"qos"`
	Codec       string        `yaml:"codec"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type Supervisor struct {
	PollRate       float64       `yaml:"poll_rate"`
	CallAttempts   int           `yaml:"call_attempts"`
	Backoff        time.Duration `yaml:"backoff"`
	AckTimeout     time.Duration `yaml:"ack_timeout"`
	TakeOffTimeout time.Duration `yaml:"takeoff_timeout"`
	LandTimeout    time.Duration `yaml:"land_timeout"`
	GoToTimeout    time.Duration `yaml:"goto_timeout"`
	MissionTimeout time.Duration `yaml:"mission_timeout"`
	ClimbRate      float64       `yaml:"climb_rate"`
	HistorySize    int           `yaml:"history_size"`
	InboxSize      int           `yaml:"inbox_size"`
}

// Mission holds the parameters of the missions the supervisor synthesizes itself.
type Mission struct {
	MinimumPitch      float64 `yaml:"minimum_pitch"`
	AuxDistance       float64 `yaml:"aux_distance"`
	AuxHeight         float64 `yaml:"aux_height"`
	AcceptanceRadius  float64 `yaml:"acceptance_radius"`
	OrbitDistance     float64 `yaml:"orbit_distance"`
	LandPrecisionMode float64 `yaml:"land_precision_mode"`
	LandAbortAltitude float64 `yaml:"land_abort_altitude"`
	PreplannedDir     string  `yaml:"preplanned_dir"`
}

type Frames struct {
	UseAltitude bool       `yaml:"use_altitude"`
	HomeFrameID string     `yaml:"home_frame_id"`
	PoseFrameID string     `yaml:"pose_frame_id"`
	Offset      [3]float64 `yaml:"offset"`
}

type Params struct {
	Fetch     []string           `yaml:"fetch"`
	Set       map[string]float64 `yaml:"set"`
	CacheSize int                `yaml:"cache_size"`
	Workers   int                `yaml:"workers"`
}

type Status struct {
	ReportRate float64 `yaml:"report_rate"`
}

type Log struct {
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

func Default() Config {
	return Config{
		MQTT: MQTT{
			Broker:      "tcp://localhost:1883",
			Username:    "unused",
			Algorithm:   "RS256",
			QoS:         1,
			Codec:       "json",
			CallTimeout: 5 * time.Second,
		},
		Supervisor: Supervisor{
			PollRate:       5,
			CallAttempts:   3,
			Backoff:        500 * time.Millisecond,
			AckTimeout:     10 * time.Second,
			TakeOffTimeout: 2 * time.Minute,
			LandTimeout:    5 * time.Minute,
			GoToTimeout:    10 * time.Minute,
			MissionTimeout: time.Hour,
			ClimbRate:      0.2,
			HistorySize:    64,
			InboxSize:      16,
		},
		Mission: Mission{
			MinimumPitch:     15,
			AuxDistance:      100,
			AuxHeight:        30,
			AcceptanceRadius: 10,
			PreplannedDir:    ".",
		},
		Frames: Frames{
			HomeFrameID: "uav_home",
			PoseFrameID: "map",
		},
		Params: Params{
			CacheSize: 256,
			Workers:   4,
		},
		Status: Status{
			ReportRate: 1,
		},
		Log: Log{
			File:       "fixedwing.log",
			MaxSize:    32, // MB
			MaxAge:     14,
			MaxBackups: 3,
		},
	}
}

// Parse overlays YAML text on the defaults.
func Parse(text []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(text, &cfg); err != nil {
		return Config{}, errors.WithMessage(err, "Could not parse config")
	}
	return cfg, cfg.validate()
}

// Load reads filename; a missing file yields the defaults.
func Load(filename string) (Config, error) {
	text, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.WithMessagef(err, "Could not read config %s", filename)
	}
	return Parse(text)
}

func (c Config) validate() error {
	if c.Supervisor.PollRate <= 0 {
		return errors.Errorf("supervisor.poll_rate must be positive, got %v", c.Supervisor.PollRate)
	}
	if c.Supervisor.CallAttempts < 1 {
		return errors.Errorf("supervisor.call_attempts must be at least 1, got %d", c.Supervisor.CallAttempts)
	}
	if c.MQTT.CallTimeout <= 0 {
		return errors.Errorf("mqtt.call_timeout must be positive, got %v", c.MQTT.CallTimeout)
	}
	switch c.MQTT.Codec {
	case "json", "msgpack":
	default:
		return errors.Errorf("mqtt.codec must be json or msgpack, got %q", c.MQTT.Codec)
	}
	return nil
}

// PollInterval is the supervisor tick period.
func (s Supervisor) PollInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.PollRate)
}
