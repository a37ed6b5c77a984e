// Package logger wraps zap so every component logs the same way:
//   - a global sugared logger with a console encoder,
//   - the logger carried in a context (ToContext/FromContext/WithName/WithKV),
//   - level parsing for CLI flags and config,
//   - helpers such as Infof and WarnKV that read the logger from the context.
//
// Motion code never owns a logger; it takes the context of the command it serves.
package logger
