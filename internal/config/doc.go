// Package config defines the settings shared by the eyes binaries and provides
// helpers to load, validate and save them in YAML format.
//
// Besides transport addresses it carries the PWM driver selection, the servo
// calibration table, motion timing, the client retry policy and the blinker
// interval. Load starts from Default, so a file only needs the keys it changes.
package config
