package servo

import (
	"errors"
	"fmt"
)

var errTestOutput = errors.New("test output failure")

// recordingOutput remembers every call made to it.
type recordingOutput struct {
	// enables holds the duty passed to each Enable call.
	enables []uint16
	// duties holds the duty passed to each SetDuty call.
	duties []uint16
	// disables counts Disable calls.
	disables int
	// failEnable makes Enable fail.
	failEnable bool
	// failAfter makes SetDuty fail once this many calls succeeded; zero disables it.
	failAfter int
	// failDisable makes Disable fail.
	failDisable bool
}

func (o *recordingOutput) Enable(duty uint16) error {
	if o.failEnable {
		return errTestOutput
	}

	o.enables = append(o.enables, duty)

	return nil
}

func (o *recordingOutput) SetDuty(duty uint16) error {
	if o.failAfter > 0 && len(o.duties) >= o.failAfter {
		return errTestOutput
	}

	o.duties = append(o.duties, duty)

	return nil
}

func (o *recordingOutput) Disable() error {
	o.disables++

	if o.failDisable {
		return errTestOutput
	}

	return nil
}

// recordingDriver opens recordingOutputs and keeps them by channel.
type recordingDriver struct {
	outputs  map[int]*recordingOutput
	closed   bool
	closeErr error
}

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{outputs: make(map[int]*recordingOutput)}
}

func (d *recordingDriver) Open(channel int) (Output, error) {
	if channel < 0 {
		return nil, fmt.Errorf("channel %d: %w", channel, errTestOutput)
	}

	o := new(recordingOutput)
	d.outputs[channel] = o

	return o, nil
}

func (d *recordingDriver) Close() error {
	d.closed = true

	return d.closeErr
}
