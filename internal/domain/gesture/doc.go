// Package gesture composes servo motions into named eye gestures and exposes
// them as a table of command verbs.
//
// Every gesture runs inside a release scope: when it returns, successfully or
// not, every actuator of the registry is released.
package gesture
