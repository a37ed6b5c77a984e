// Package blinker keeps a remote face alive by blinking at random intervals.
//
// It waits for the eyes server, opens the lids, centers the gaze and then
// blinks until its context ends, finally closing the lids and releasing
// every actuator.
package blinker
