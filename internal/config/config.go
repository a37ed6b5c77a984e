package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the eyes binaries.
type Config struct {
	// ServerAddress is the gRPC address the server listens on and clients dial.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress is the address of the HTTP verb surface; empty disables it.
	HTTPAddress string `yaml:"http_addr"`
	// Timeout bounds network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level"`
	// Driver selects the PWM backend.
	Driver Driver `yaml:"driver"`
	// Limits is the valid pulse range of every servo.
	Limits Limits `yaml:"limits"`
	// Motion paces every gesture.
	Motion Motion `yaml:"motion"`
	// Lids is the eyelid calibration.
	Lids Lids `yaml:"lids"`
	// Gaze is the eye direction calibration.
	Gaze Gaze `yaml:"gaze"`
	// Client is the retry policy of the command line client.
	Client Client `yaml:"client"`
	// Blinker is the idle blink interval.
	Blinker Blinker `yaml:"blinker"`
}

// Driver kinds.
const (
	DriverSim     = "sim"
	DriverSysfs   = "sysfs"
	DriverPCA9685 = "pca9685"
)

// Driver selects and configures the PWM backend.
type Driver struct {
	// Kind is one of sim, sysfs and pca9685.
	Kind string `yaml:"kind"`
	// Sysfs configures the Linux sysfs PWM backend.
	Sysfs Sysfs `yaml:"sysfs"`
	// PCA9685 configures the I2C PWM controller backend.
	PCA9685 PCA9685 `yaml:"pca9685"`
}

// Sysfs locates a PWM chip under /sys/class/pwm.
type Sysfs struct {
	// Chip is the N in pwmchipN.
	Chip int `yaml:"chip"`
	// Base is the sysfs PWM class directory.
	Base string `yaml:"base"`
}

// PCA9685 locates the controller on an I2C bus.
type PCA9685 struct {
	// Bus is the I2C bus name; empty picks the first bus.
	Bus string `yaml:"bus"`
	// Address is the 7-bit I2C address.
	Address uint16 `yaml:"address"`
}

// Limits is the valid pulse width range in microseconds.
type Limits struct {
	MinPulse int `yaml:"min_pulse_us"`
	MaxPulse int `yaml:"max_pulse_us"`
}

// Motion holds ramp and gesture timing.
type Motion struct {
	// Step is the pulse change per ramp iteration in microseconds.
	Step int `yaml:"step_us"`
	// StepDelay is the pause after each ramp iteration.
	StepDelay time.Duration `yaml:"step_delay"`
	// EnableStagger is the pause after each servo is powered up.
	EnableStagger time.Duration `yaml:"enable_stagger"`
	// BlinkHold is how long the lids stay closed during a blink.
	BlinkHold time.Duration `yaml:"blink_hold"`
	// WinkHold is how long one eye stays closed during a wink.
	WinkHold time.Duration `yaml:"wink_hold"`
	// LookPause separates re-centering from the final look move.
	LookPause time.Duration `yaml:"look_pause"`
}

// Lid is the calibration of one eyelid servo.
type Lid struct {
	Channel int `yaml:"channel"`
	Open    int `yaml:"open_us"`
	Closed  int `yaml:"closed_us"`
}

// Lids holds the four eyelid servos.
type Lids struct {
	TopLeft     Lid `yaml:"top_left"`
	BottomLeft  Lid `yaml:"bottom_left"`
	TopRight    Lid `yaml:"top_right"`
	BottomRight Lid `yaml:"bottom_right"`
}

// UpDown is the calibration of the vertical gaze servo.
type UpDown struct {
	Channel int `yaml:"channel"`
	Up      int `yaml:"up_us"`
	Down    int `yaml:"down_us"`
	Center  int `yaml:"center_us"`
	// Recenter makes look_up and look_down pass through center first.
	Recenter bool `yaml:"recenter"`
}

// LeftRight is the calibration of the horizontal gaze servo.
type LeftRight struct {
	Channel int `yaml:"channel"`
	Left    int `yaml:"left_us"`
	Right   int `yaml:"right_us"`
	Center  int `yaml:"center_us"`
	// Recenter makes look_left and look_right pass through center first.
	Recenter bool `yaml:"recenter"`
}

// Gaze holds the eye direction servos. LeftRight is optional: Load keeps it
// only when the file has a left_right key, Save writes null when absent.
type Gaze struct {
	UpDown    UpDown     `yaml:"up_down"`
	LeftRight *LeftRight `yaml:"left_right"`
}

// Client is the retry policy of one-shot commands.
type Client struct {
	// Retries is the number of attempts per command.
	Retries int `yaml:"retries"`
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// ReadyTimeout bounds waiting for the server to answer ping.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
}

// Blinker is the idle blink interval range.
type Blinker struct {
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "eyes-settings.yaml"

	// DefaultServerAddress is the default gRPC address.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultHTTPAddress is the default HTTP address.
	DefaultHTTPAddress = ":8080"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultSysfsBase is where Linux exposes PWM chips.
	DefaultSysfsBase = "/sys/class/pwm"

	// DefaultPCA9685Address is the factory I2C address of the controller.
	DefaultPCA9685Address = 0x40

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errEmptyConfig is returned for a file without any document.
	errEmptyConfig = errors.New("settings file is empty")
	// errUnknownDriver is returned for an unsupported driver kind.
	errUnknownDriver = errors.New("unknown driver kind")
	// errInvalidPulse is returned for a calibrated pulse outside the limits.
	errInvalidPulse = errors.New("pulse out of range")
	// errInvalidLimits is returned when the pulse limits are inverted or outside the PWM period.
	errInvalidLimits = errors.New("invalid pulse limits")
	// errInvalidStep is returned for a non-positive ramp step.
	errInvalidStep = errors.New("motion step must be positive")
	// errInvalidChannel is returned for a negative or shared channel.
	errInvalidChannel = errors.New("invalid channel")
	// errInvalidInterval is returned for an inverted blinker interval.
	errInvalidInterval = errors.New("invalid blink interval")
)

// Default returns the settings of the reference rig running on the simulator.
func Default() *Config {
	return &Config{
		ServerAddress: DefaultServerAddress,
		HTTPAddress:   DefaultHTTPAddress,
		Timeout:       DefaultTimeout,
		LogLevel:      "info",
		Driver: Driver{
			Kind:    DriverSim,
			Sysfs:   Sysfs{Base: DefaultSysfsBase},
			PCA9685: PCA9685{Address: DefaultPCA9685Address},
		},
		Limits: Limits{MinPulse: 500, MaxPulse: 2500},
		Motion: Motion{
			Step:          20,
			StepDelay:     6 * time.Millisecond,
			EnableStagger: 50 * time.Millisecond,
			BlinkHold:     90 * time.Millisecond,
			WinkHold:      110 * time.Millisecond,
			LookPause:     120 * time.Millisecond,
		},
		Lids: Lids{
			TopLeft:     Lid{Channel: 12, Open: 2200, Closed: 1155},
			BottomLeft:  Lid{Channel: 9, Open: 1560, Closed: 2360},
			TopRight:    Lid{Channel: 7, Open: 700, Closed: 1700},
			BottomRight: Lid{Channel: 15, Open: 1920, Closed: 1040},
		},
		Gaze: Gaze{
			UpDown: UpDown{Channel: 11, Up: 1560, Down: 1260, Center: 1410},
			LeftRight: &LeftRight{
				Channel:  5,
				Left:     820,
				Right:    1920,
				Center:   1370,
				Recenter: true,
			},
		},
		Client: Client{
			Retries:      6,
			RetryDelay:   200 * time.Millisecond,
			ReadyTimeout: 6 * time.Second,
		},
		Blinker: Blinker{
			MinInterval: 5 * time.Second,
			MaxInterval: 10 * time.Second,
		},
	}
}

// Load reads configuration from the provided path on top of Default and
// validates it. Unknown keys are rejected. The optional left/right gaze servo
// is dropped unless gaze.left_right is present.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)

	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyConfig
		}

		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	// The left/right servo exists only when the file names it.
	var doc yaml.Node
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if !hasKey(&doc, "gaze", "left_right") {
		cfg.Gaze.LeftRight = nil
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// hasKey reports whether the mapping path exists in the YAML document.
func hasKey(doc *yaml.Node, path ...string) bool {
	node := doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return false
		}

		node = node.Content[0]
	}

	for _, key := range path {
		if node.Kind != yaml.MappingNode {
			return false
		}

		var next *yaml.Node

		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]

				break
			}
		}

		if next == nil {
			return false
		}

		node = next
	}

	return true
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills zero timing values with defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http socket: %w", err)
		}
	}

	applyDefaults(settings)

	if err := validateDriver(&settings.Driver); err != nil {
		return err
	}

	if err := validateServos(settings); err != nil {
		return err
	}

	if settings.Blinker.MinInterval > settings.Blinker.MaxInterval {
		return fmt.Errorf("%w: min %s is above max %s",
			errInvalidInterval, settings.Blinker.MinInterval, settings.Blinker.MaxInterval)
	}

	return nil
}

func applyDefaults(settings *Config) {
	def := Default()

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = def.Timeout
	}

	if settings.Driver.Kind == "" {
		settings.Driver.Kind = def.Driver.Kind
	}

	if settings.Driver.Sysfs.Base == "" {
		settings.Driver.Sysfs.Base = def.Driver.Sysfs.Base
	}

	if settings.Driver.PCA9685.Address == 0 {
		settings.Driver.PCA9685.Address = def.Driver.PCA9685.Address
	}

	if settings.Limits == (Limits{}) {
		settings.Limits = def.Limits
	}

	m := &settings.Motion
	setIfZero(&m.StepDelay, def.Motion.StepDelay)
	setIfZero(&m.EnableStagger, def.Motion.EnableStagger)
	setIfZero(&m.BlinkHold, def.Motion.BlinkHold)
	setIfZero(&m.WinkHold, def.Motion.WinkHold)
	setIfZero(&m.LookPause, def.Motion.LookPause)

	c := &settings.Client
	if c.Retries <= 0 {
		c.Retries = def.Client.Retries
	}

	setIfZero(&c.RetryDelay, def.Client.RetryDelay)
	setIfZero(&c.ReadyTimeout, def.Client.ReadyTimeout)

	setIfZero(&settings.Blinker.MinInterval, def.Blinker.MinInterval)
	setIfZero(&settings.Blinker.MaxInterval, def.Blinker.MaxInterval)
}

func setIfZero(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

func validateDriver(d *Driver) error {
	switch d.Kind {
	case DriverSim, DriverPCA9685:
		return nil
	case DriverSysfs:
		if d.Sysfs.Chip < 0 {
			return fmt.Errorf("%w: pwmchip%d", errInvalidChannel, d.Sysfs.Chip)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, d.Kind)
	}
}

func validateServos(settings *Config) error {
	limits := settings.Limits
	if limits.MinPulse <= 0 || limits.MinPulse >= limits.MaxPulse || limits.MaxPulse >= 20_000 {
		return fmt.Errorf("%w: %d..%d", errInvalidLimits, limits.MinPulse, limits.MaxPulse)
	}

	if settings.Motion.Step <= 0 {
		return fmt.Errorf("%w: got %d", errInvalidStep, settings.Motion.Step)
	}

	channels := make(map[int]string)

	claim := func(name string, channel int, pulses map[string]int) error {
		if channel < 0 {
			return fmt.Errorf("%w: %s uses %d", errInvalidChannel, name, channel)
		}

		if owner, ok := channels[channel]; ok {
			return fmt.Errorf("%w: %s and %s share %d", errInvalidChannel, owner, name, channel)
		}

		channels[channel] = name

		for position, pulse := range pulses {
			if pulse < limits.MinPulse || pulse > limits.MaxPulse {
				return fmt.Errorf("%w: %s %s is %d, want %d..%d",
					errInvalidPulse, name, position, pulse, limits.MinPulse, limits.MaxPulse)
			}
		}

		return nil
	}

	for _, lid := range []struct {
		name string
		lid  Lid
	}{
		{"top_left", settings.Lids.TopLeft},
		{"bottom_left", settings.Lids.BottomLeft},
		{"top_right", settings.Lids.TopRight},
		{"bottom_right", settings.Lids.BottomRight},
	} {
		err := claim(lid.name, lid.lid.Channel, map[string]int{"open": lid.lid.Open, "closed": lid.lid.Closed})
		if err != nil {
			return err
		}
	}

	ud := settings.Gaze.UpDown
	if err := claim("up_down", ud.Channel, map[string]int{"up": ud.Up, "down": ud.Down, "center": ud.Center}); err != nil {
		return err
	}

	if lr := settings.Gaze.LeftRight; lr != nil {
		err := claim("left_right", lr.Channel, map[string]int{"left": lr.Left, "right": lr.Right, "center": lr.Center})
		if err != nil {
			return err
		}
	}

	return nil
}
