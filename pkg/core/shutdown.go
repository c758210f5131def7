package core

// ShutdownMode determines how a scheduler stops.
type ShutdownMode string

const (
	// ShutdownGraceful stops dispatching and lets running jobs complete.
	ShutdownGraceful ShutdownMode = "graceful"
	// ShutdownAggressive cancels the context of running jobs immediately.
	ShutdownAggressive ShutdownMode = "aggressive"
)
