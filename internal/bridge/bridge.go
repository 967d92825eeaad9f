// Package bridge connects the core to the room sensor fleet. The core only
// sees the Bridge contract: telemetry samples flow in, light-control actions
// flow out; everything else about the sensor side is opaque.
package bridge

import "time"

// Kind labels a telemetry reading.
type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindOccupancy   Kind = "occupancy"
	KindLight       Kind = "light"
)

// Sample is one telemetry reading for a room.
type Sample struct {
	Room  string    `json:"room"`
	Kind  Kind      `json:"kind"`
	Value float64   `json:"value"`
	At    time.Time `json:"at,omitempty"`
}

// TelemetryHandler receives samples as they arrive.
type TelemetryHandler func(Sample)

// Bridge is the injected sensor-bridge collaborator.
type Bridge interface {
	// OnTelemetry registers the handler invoked for every incoming sample.
	OnTelemetry(handler TelemetryHandler)
	// TriggerLight requests the room's light be switched on or off.
	TriggerLight(room string, on bool) error
	// Close releases the underlying connection.
	Close() error
}

// Nop is a bridge that drops everything, for deployments without sensors.
type Nop struct{}

func (Nop) OnTelemetry(TelemetryHandler) {}

func (Nop) TriggerLight(string, bool) error { return nil }

func (Nop) Close() error { return nil }
