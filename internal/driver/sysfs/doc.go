// Package sysfs drives hardware PWM channels through the Linux
// /sys/class/pwm interface.
//
// On a Raspberry Pi the channels appear after enabling an overlay such as
// dtoverlay=pwm-2chan. Every channel is exported on Open, runs with a 20 ms
// period and is unexported again on Close.
package sysfs
