// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components derive child loggers with Named and attach session or
// operation context with With, so every line emitted while a batch runs
// carries the session id and operation id.
//
// Example Usage:
//
//	logger := logging.NewDefault().Named("engine")
//	logger.Info("batch finished", zap.Uint64("operation_id", 7), zap.Int("items", 3))
//	logger.Error("move failed", zap.String("uid", uid), zap.Error(err))
package logging
