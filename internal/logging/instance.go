// Package logging provides per-simulation structured loggers so that log
// lines from concurrently active fault simulations stay attributable.
package logging

import (
	"log/slog"

	uuid "github.com/satori/go.uuid"
)

// Instance is a logger bound to one fault simulation's identity.
type Instance struct {
	SimulationID string
	FaultName    string
	ListenPort   int

	logger *slog.Logger
}

// NewInstance derives an Instance logger from the global default logger,
// binding simulation id, fault name and listen port onto every record.
func NewInstance(simulationID, faultName string, listenPort int) *Instance {
	return &Instance{
		SimulationID: simulationID,
		FaultName:    faultName,
		ListenPort:   listenPort,
		logger: slog.Default().With(
			"simulation_id", simulationID,
			"fault", faultName,
			"listen_port", listenPort,
		),
	}
}

// Logger returns the bound *slog.Logger.
func (i *Instance) Logger() *slog.Logger { return i.logger }

// With returns a further-derived logger with additional fields, e.g. a
// per-connection id.
func (i *Instance) With(args ...any) *slog.Logger { return i.logger.With(args...) }

// NewConnectionID generates a UUID suitable for tagging one accepted
// connection's log lines, mirroring the teacher's per-connection id scheme.
func NewConnectionID() string { return uuid.NewV4().String() }

// ForConnection derives a per-connection logger, tagging every line it
// writes with a fresh connection id on top of the bound simulation fields.
func (i *Instance) ForConnection() *slog.Logger {
	return i.With("connection_id", NewConnectionID())
}
