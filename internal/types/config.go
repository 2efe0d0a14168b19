package types

type RunMode string

const (
	// ModeLocal is the mode for running the ledger worker against local infrastructure
	ModeLocal RunMode = "local"
	// ModeWorker is the mode for running the ledger worker in a deployed environment
	ModeWorker RunMode = "worker"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
