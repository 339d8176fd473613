package config

// Logger contains logger configuration.
type Logger struct {
	// LogLevel is one of zap levels ("debug", "info", "warn", "error"...),
	// "info" is used when it's empty.
	LogLevel string `yaml:"LogLevel"`
	// LogPath is a file to write logs to, stderr is used when it's empty.
	LogPath string `yaml:"LogPath"`
}
