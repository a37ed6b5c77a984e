package sysfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/oshokin/walle-eyes/internal/domain/servo"
)

// periodNS is the servo PWM period in nanoseconds.
const periodNS = uint64(servo.PeriodMicros) * 1_000

var (
	// ErrChannelRange is returned for a channel the chip does not have.
	ErrChannelRange = errors.New("channel out of range")
	// ErrChannelInUse is returned when a channel is opened twice.
	ErrChannelInUse = errors.New("channel already open")
)

// Driver owns one pwmchipN directory.
type Driver struct {
	mu       sync.Mutex
	chipPath string
	npwm     int
	outputs  map[int]*Output
	// settle bounds waiting for the kernel to create exported nodes and for
	// udev to fix their permissions.
	settle time.Duration
}

// New opens pwmchip<chip> under base and reads how many channels it has.
func New(base string, chip int) (*Driver, error) {
	chipPath := filepath.Join(base, "pwmchip"+strconv.Itoa(chip))

	npwm, err := readInt(filepath.Join(chipPath, "npwm"))
	if err != nil {
		return nil, fmt.Errorf("read %s (is the pwm overlay enabled?): %w", chipPath, err)
	}

	if npwm <= 0 {
		return nil, fmt.Errorf("%s has no pwm channels", chipPath)
	}

	return &Driver{
		chipPath: chipPath,
		npwm:     npwm,
		outputs:  make(map[int]*Output),
		settle:   2 * time.Second,
	}, nil
}

// Open exports channel, sets the servo period and leaves the output disabled.
func (d *Driver) Open(channel int) (servo.Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if channel < 0 || channel >= d.npwm {
		return nil, fmt.Errorf("%w: %d not in 0..%d", ErrChannelRange, channel, d.npwm-1)
	}

	if _, ok := d.outputs[channel]; ok {
		return nil, fmt.Errorf("%w: %d", ErrChannelInUse, channel)
	}

	o := &Output{
		channel: channel,
		path:    filepath.Join(d.chipPath, "pwm"+strconv.Itoa(channel)),
		settle:  d.settle,
	}

	if err := d.export(o); err != nil {
		return nil, err
	}

	// The kernel rejects period changes while the channel runs.
	if err := o.write("enable", "0"); err != nil {
		return nil, err
	}

	if err := o.write("period", strconv.FormatUint(periodNS, 10)); err != nil {
		return nil, err
	}

	d.outputs[channel] = o

	return o, nil
}

// Close disables and unexports every opened channel.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error

	for channel, o := range d.outputs {
		err = multierr.Append(err, o.Disable())
		err = multierr.Append(err, writeSysfs(filepath.Join(d.chipPath, "unexport"), strconv.Itoa(channel), 0))

		delete(d.outputs, channel)
	}

	return err
}

func (d *Driver) export(o *Output) error {
	if _, err := os.Stat(o.path); err == nil {
		return nil
	}

	if err := writeSysfs(filepath.Join(d.chipPath, "export"), strconv.Itoa(o.channel), 0); err != nil {
		// Someone else may have exported it meanwhile.
		if _, statErr := os.Stat(o.path); statErr == nil {
			return nil
		}

		return fmt.Errorf("export pwm%d: %w", o.channel, err)
	}

	deadline := time.Now().Add(d.settle)
	for {
		_, err := os.Stat(o.path)
		if err == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("pwm%d not created after export: %w", o.channel, err)
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// Output is one exported PWM channel.
type Output struct {
	channel int
	path    string
	settle  time.Duration
}

// Enable writes the duty cycle and starts the channel.
func (o *Output) Enable(duty uint16) error {
	if err := o.SetDuty(duty); err != nil {
		return err
	}

	return o.write("enable", "1")
}

// SetDuty writes the duty cycle in nanoseconds.
func (o *Output) SetDuty(duty uint16) error {
	return o.write("duty_cycle", strconv.FormatUint(DutyToNanos(duty), 10))
}

// Disable stops the channel.
func (o *Output) Disable() error {
	return o.write("enable", "0")
}

func (o *Output) write(name, value string) error {
	if err := writeSysfs(filepath.Join(o.path, name), value, o.settle); err != nil {
		return fmt.Errorf("pwm%d %s: %w", o.channel, name, err)
	}

	return nil
}

// DutyToNanos converts a 16-bit duty to the high time of one period in nanoseconds.
func DutyToNanos(duty uint16) uint64 {
	return uint64(duty) * periodNS / servo.DutyMax
}

// writeSysfs writes value to an existing attribute. Right after an export
// the attribute may be missing or not yet writable; such errors are retried
// until settle elapses.
func writeSysfs(path, value string, settle time.Duration) error {
	deadline := time.Now().Add(settle)

	for {
		err := writeOnce(path, value)
		if err == nil {
			return nil
		}

		if !isRetryable(err) || !time.Now().Before(deadline) {
			return err
		}

		time.Sleep(25 * time.Millisecond)
	}
}

func writeOnce(path, value string) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}

	_, werr := f.WriteString(value)

	return multierr.Combine(werr, f.Close())
}

func isRetryable(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, err
	}

	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%s is empty", path)
	}

	return strconv.Atoi(s)
}
