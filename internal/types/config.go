package types

// RunMode is the mode the process runs in
type RunMode string

const (
	ModeLocal  RunMode = "local"
	ModeServer RunMode = "server"
)

// LogLevel is the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
