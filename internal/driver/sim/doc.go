// Package sim is an in-memory PWM driver. It records every call with a
// timestamp so motion can be inspected without hardware, and it can be told
// to fail to exercise error paths.
package sim
