package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port of the appointment service. Methods
// return ErrNotFound when the addressed row does not exist or no longer
// matches the required state.
type Repository interface {
	// TransitionStatus moves an appointment from one status to another in a
	// single conditional update.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	// GetByIDAndStatus loads the allocation projection of an appointment in
	// the given status.
	GetByIDAndStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
	HasExpertise(ctx context.Context, userID, expertiseID uuid.UUID) (bool, error)
	// AssignDoctor sets doctor and coordinator on an ACCEPTED appointment that
	// still requires expertiseID.
	AssignDoctor(ctx context.Context, id, expertiseID, doctorID, coordinatorID uuid.UUID) (*Appointment, error)

	CountUpcoming(ctx context.Context, f UpcomingFilter) (int, error)
	ListUpcoming(ctx context.Context, f UpcomingFilter, limit, offset int) ([]*Summary, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
