package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json

	// AuditFile receives one JSON line per oracle ask. Empty disables it.
	AuditFile string `yaml:"audit_file"`
}
