package server

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/domain/gesture"
	"github.com/oshokin/walle-eyes/internal/domain/servo"
	"github.com/oshokin/walle-eyes/internal/driver/pca9685"
	"github.com/oshokin/walle-eyes/internal/driver/sim"
	"github.com/oshokin/walle-eyes/internal/driver/sysfs"
)

// openDriver opens the PWM backend selected in settings.
func openDriver(settings *config.Driver) (servo.Driver, error) {
	switch settings.Kind {
	case config.DriverSim, "":
		return sim.New(), nil
	case config.DriverSysfs:
		return sysfs.New(settings.Sysfs.Base, settings.Sysfs.Chip)
	case config.DriverPCA9685:
		return pca9685.Open(settings.PCA9685.Bus, settings.PCA9685.Address)
	default:
		return nil, fmt.Errorf("unknown driver kind %q", settings.Kind)
	}
}

// buildRegistry registers the calibrated servos of settings and the eyelid
// groups. Lids rest open and gaze servos rest centered.
func buildRegistry(driver servo.Driver, settings *config.Config) (*servo.Registry, error) {
	registry := servo.NewRegistry(driver)

	lids := []struct {
		name string
		lid  config.Lid
	}{
		{"top_left", settings.Lids.TopLeft},
		{"bottom_left", settings.Lids.BottomLeft},
		{"top_right", settings.Lids.TopRight},
		{"bottom_right", settings.Lids.BottomRight},
	}

	specs := make([]servo.ActuatorSpec, 0, len(lids)+2)
	for _, l := range lids {
		specs = append(specs, servo.ActuatorSpec{
			Name:    l.name,
			Channel: l.lid.Channel,
			Rest:    l.lid.Open,
			Positions: map[servo.Position]int{
				servo.Open:   l.lid.Open,
				servo.Closed: l.lid.Closed,
			},
		})
	}

	ud := settings.Gaze.UpDown
	specs = append(specs, servo.ActuatorSpec{
		Name:    gesture.ActuatorUpDown,
		Channel: ud.Channel,
		Rest:    ud.Center,
		Positions: map[servo.Position]int{
			servo.Up:     ud.Up,
			servo.Down:   ud.Down,
			servo.Center: ud.Center,
		},
	})

	if lr := settings.Gaze.LeftRight; lr != nil {
		specs = append(specs, servo.ActuatorSpec{
			Name:    gesture.ActuatorLeftRight,
			Channel: lr.Channel,
			Rest:    lr.Center,
			Positions: map[servo.Position]int{
				servo.Left:   lr.Left,
				servo.Right:  lr.Right,
				servo.Center: lr.Center,
			},
		})
	}

	for _, spec := range specs {
		if _, err := registry.AddActuator(spec); err != nil {
			return nil, err
		}
	}

	groups := []struct {
		name    string
		members []string
	}{
		{gesture.GroupLids, []string{"top_left", "top_right", "bottom_left", "bottom_right"}},
		{gesture.GroupLeftEye, []string{"top_left", "bottom_left"}},
		{gesture.GroupRightEye, []string{"top_right", "bottom_right"}},
	}

	for _, g := range groups {
		if _, err := registry.AddGroup(g.name, g.members...); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// timingFrom converts the motion settings to gesture timing.
func timingFrom(m *config.Motion) gesture.Timing {
	return gesture.Timing{
		Pacing: servo.Pacing{
			Ramp: servo.Ramp{
				Step:  m.Step,
				Delay: m.StepDelay,
			},
			Stagger: m.EnableStagger,
		},
		BlinkHold: m.BlinkHold,
		WinkHold:  m.WinkHold,
		LookPause: m.LookPause,
	}
}

// buildRig opens the driver and binds a gesture library to it. On failure the
// driver is closed again.
func buildRig(settings *config.Config) (*gesture.Library, *servo.Registry, error) {
	driver, err := openDriver(&settings.Driver)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s driver: %w", settings.Driver.Kind, err)
	}

	registry, err := buildRegistry(driver, settings)
	if err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("register servos: %w", err), driver.Close())
	}

	library, err := gesture.New(registry, &gesture.Options{
		Timing:            timingFrom(&settings.Motion),
		RecenterUpDown:    settings.Gaze.UpDown.Recenter,
		RecenterLeftRight: settings.Gaze.LeftRight != nil && settings.Gaze.LeftRight.Recenter,
	})
	if err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("bind gestures: %w", err), driver.Close())
	}

	return library, registry, nil
}
