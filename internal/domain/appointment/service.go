package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medroute/medroute/internal/platform/events"
	"github.com/medroute/medroute/internal/platform/lock"
	"github.com/medroute/medroute/pkg/pagination"
)

// MaxSearchLength bounds the free-text search of the upcoming list.
const MaxSearchLength = 50

type Service struct {
	repo   Repository
	locker lock.Locker
	pub    events.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker lock.Locker, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		pub:    pub,
		logger: logger.With().Str("component", "appointment").Logger(),
		now:    time.Now,
	}
}

// SetStatus accepts or declines a BOOKED appointment. A second call for the
// same appointment returns ErrNotFound because it is no longer BOOKED.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status, actorID uuid.UUID) (*Appointment, error) {
	if !StatusBooked.CanTransitionTo(status) {
		return nil, invalid("status", "Invalid status")
	}

	appt, err := s.repo.TransitionStatus(ctx, id, StatusBooked, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("status", string(status)).
		Str("actor_id", actorID.String()).
		Msg("appointment status changed")

	s.publish(ctx, events.Event{
		Type:          events.TypeStatusChanged,
		AppointmentID: id,
		Status:        string(status),
		ActorID:       actorID,
		OccurredAt:    s.now().UTC(),
	})
	return appt, nil
}

// StatusMessage is the human readable outcome of a status change.
func StatusMessage(status Status) string {
	switch status {
	case StatusAccepted:
		return "appointment accepted"
	case StatusDeclined:
		return "appointment declined"
	}
	return "appointment updated"
}

// AllocateDoctor assigns doctorID to an ACCEPTED appointment on behalf of
// coordinatorID. The doctor must practise the expertise the appointment
// requires.
func (s *Service) AllocateDoctor(ctx context.Context, id, doctorID, coordinatorID uuid.UUID) error {
	err := s.locker.WithLock(ctx, "appointment:"+id.String(), func(ctx context.Context) error {
		appt, err := s.repo.GetByIDAndStatus(ctx, id, StatusAccepted)
		if err != nil {
			return err
		}

		ok, err := s.repo.HasExpertise(ctx, doctorID, appt.DoctorExpertiseID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrExpertiseMismatch
		}

		_, err = s.repo.AssignDoctor(ctx, id, appt.DoctorExpertiseID, doctorID, coordinatorID)
		return err
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return ErrAllocationBusy
	}
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("doctor_id", doctorID.String()).
		Str("coordinator_id", coordinatorID.String()).
		Msg("doctor allocated")

	s.publish(ctx, events.Event{
		Type:          events.TypeDoctorAllocated,
		AppointmentID: id,
		Status:        string(StatusAccepted),
		DoctorID:      &doctorID,
		ActorID:       coordinatorID,
		OccurredAt:    s.now().UTC(),
	})
	return nil
}

// ListUpcoming returns one page of BOOKED and ACCEPTED appointments, newest
// first. The total is only computed for the first page and is 0 otherwise.
func (s *Service) ListUpcoming(ctx context.Context, q UpcomingQuery) ([]*Summary, int, error) {
	if q.Limit < 1 {
		return nil, 0, invalid("limit", "Please provide limit")
	}
	if q.Limit > pagination.MaxLimit {
		return nil, 0, invalid("limit", fmt.Sprintf("limit must be at most %d", pagination.MaxLimit))
	}
	if q.Page < 1 {
		return nil, 0, invalid("page", "Please provide page")
	}
	if utf8.RuneCountInString(q.Search) > MaxSearchLength {
		return nil, 0, invalid("search", fmt.Sprintf("search must be at most %d characters", MaxSearchLength))
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, 0, invalid("from", "from must not be after to")
	}

	var total int
	if q.NeedsTotal() {
		var err error
		if total, err = s.repo.CountUpcoming(ctx, q.UpcomingFilter); err != nil {
			return nil, 0, err
		}
	}

	items, err := s.repo.ListUpcoming(ctx, q.UpcomingFilter, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetDetail returns the enriched appointment. An appointment whose patient,
// GP, PA, expertise or ship cannot be resolved is reported as not found.
func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if exists, exErr := s.repo.Exists(ctx, id); exErr == nil && exists {
		s.logger.Warn().
			Str("appointment_id", id.String()).
			Msg("appointment references a missing patient, gp, pa, expertise or ship")
	}
	return nil, ErrNotFound
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, evt); err != nil {
		s.logger.Error().Err(err).
			Str("type", evt.Type).
			Str("appointment_id", evt.AppointmentID.String()).
			Msg("failed to publish appointment event")
	}
}
