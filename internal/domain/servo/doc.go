// Package servo models hobby servos driven by a 50 Hz PWM signal.
//
// An Actuator owns one PWM Output for its whole lifetime and powers it lazily:
// the pulse train runs only while the actuator is moving or holding, and
// Release stops it to avoid buzz and heat at rest. A Group moves up to four
// actuators in lockstep so paired eyelids arrive together. Both single and
// group motion go through the same Ramp.
//
// Nothing in this package is safe for concurrent use. Callers serialize motion.
package servo
