package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // optional extra output path
}

// Outputs returns the zap output paths for this config.
func (c LoggingConfig) Outputs() []string {
	if c.File == "" {
		return []string{"stderr"}
	}
	return []string{"stderr", c.File}
}
