// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Subsystems get a named child logger, so every line carries its origin:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	store := catalog.NewStore(catalog.Options{Logger: logger.Component("catalog")})
//	logger.Info("Server starting", zap.String("port", "2345"))
package logging
