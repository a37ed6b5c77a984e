package servo

const (
	// Frequency is the servo PWM frequency in hertz.
	Frequency = 50
	// PeriodMicros is the PWM period in microseconds (1 / Frequency).
	PeriodMicros = 20_000
	// DutyMax is the full-scale value of a 16-bit duty cycle.
	DutyMax = 65_535
)

// Output is one PWM line running at Frequency. Duty values are 16-bit
// fractions of PeriodMicros, as produced by DutyFromPulse.
type Output interface {
	// Enable starts the pulse train at the given duty.
	Enable(duty uint16) error
	// SetDuty changes the duty of a running pulse train.
	SetDuty(duty uint16) error
	// Disable stops the pulse train and leaves the line low.
	Disable() error
}

// Driver hands out PWM outputs by hardware channel.
type Driver interface {
	// Open claims a channel. A channel is opened at most once per driver.
	Open(channel int) (Output, error)
	// Close stops every output and releases the hardware.
	Close() error
}

// DutyFromPulse converts a pulse width in microseconds to a 16-bit duty cycle.
// The result is floor(pulse*65535/20000) and must not be rounded.
func DutyFromPulse(pulse int) uint16 {
	if pulse <= 0 {
		return 0
	}

	if pulse >= PeriodMicros {
		return DutyMax
	}

	return uint16(uint32(pulse) * DutyMax / PeriodMicros) //nolint:gosec // Bounded by the checks above.
}
