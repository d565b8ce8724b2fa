package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher records events in the service log. Used when no broker is
// configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	e := p.logger.Info().
		Str("type", evt.Type).
		Str("appointment_id", evt.AppointmentID.String()).
		Str("actor_id", evt.ActorID.String()).
		Time("occurred_at", evt.OccurredAt)
	if evt.Status != "" {
		e = e.Str("status", evt.Status)
	}
	if evt.DoctorID != nil {
		e = e.Str("doctor_id", evt.DoctorID.String())
	}
	e.Msg("appointment event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
