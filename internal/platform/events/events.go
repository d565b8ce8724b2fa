// Package events publishes appointment lifecycle events for downstream
// consumers such as notification delivery.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeStatusChanged   = "appointment.status_changed"
	TypeDoctorAllocated = "appointment.doctor_allocated"
)

type Event struct {
	Type          string     `json:"type"`
	AppointmentID uuid.UUID  `json:"appointmentId"`
	Status        string     `json:"status,omitempty"`
	DoctorID      *uuid.UUID `json:"doctorId,omitempty"`
	ActorID       uuid.UUID  `json:"actorId"`
	OccurredAt    time.Time  `json:"occurredAt"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}
