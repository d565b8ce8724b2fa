package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medroute/medroute/pkg/pagination"
)

type Status string

const (
	StatusBooked   Status = "BOOKED"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBooked, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// CanTransitionTo reports whether an appointment in status s may move to next.
// Only BOOKED appointments move, and only to ACCEPTED or DECLINED.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusBooked && (next == StatusAccepted || next == StatusDeclined)
}

// upcomingStatuses are the statuses listed by the upcoming read-model.
var upcomingStatuses = []Status{StatusBooked, StatusAccepted}

type Appointment struct {
	ID                uuid.UUID  `json:"id"`
	Reason            string     `json:"reason"`
	DateOfAppointment time.Time  `json:"dateOfAppointment"`
	Status            Status     `json:"status"`
	PatientID         uuid.UUID  `json:"patientId"`
	GPID              uuid.UUID  `json:"gpId"`
	DoctorID          *uuid.UUID `json:"doctorId,omitempty"`
	DoctorExpertiseID uuid.UUID  `json:"doctorExpertiseId"`
	CoordinatorID     *uuid.UUID `json:"coordinatorId,omitempty"`
	PAID              uuid.UUID  `json:"paId"`
	ShipID            uuid.UUID  `json:"shipId"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Allocated reports whether a doctor has been assigned.
func (a *Appointment) Allocated() bool {
	return a.DoctorID != nil
}

type User struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	ProfilePic *string   `json:"profilePic,omitempty"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Expertise struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type UserExpertise struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	ExpertiseID uuid.UUID `json:"expertiseId"`
}

type Ship struct {
	ID   uuid.UUID `json:"id"`
	UID  string    `json:"uid"`
	Name string    `json:"name,omitempty"`
}

// PersonRef is the public projection of a user embedded in read-models.
type PersonRef struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	ProfilePic *string   `json:"profilePic,omitempty"`
}

type ExpertiseRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ShipRef struct {
	ID  uuid.UUID `json:"id"`
	UID string    `json:"uid"`
}

// Summary is one row of the upcoming appointments list.
type Summary struct {
	ID                uuid.UUID    `json:"id"`
	Reason            string       `json:"reason"`
	DateOfAppointment time.Time    `json:"dateOfAppointment"`
	Status            Status       `json:"status"`
	Patient           PersonRef    `json:"patient"`
	GP                PersonRef    `json:"gp"`
	Expertise         ExpertiseRef `json:"expertise"`
}

// Detail is the fully enriched single appointment view.
type Detail struct {
	ID                uuid.UUID    `json:"id"`
	Reason            string       `json:"reason"`
	DateOfAppointment time.Time    `json:"dateOfAppointment"`
	Status            Status       `json:"status"`
	DoctorID          *uuid.UUID   `json:"doctorId,omitempty"`
	CoordinatorID     *uuid.UUID   `json:"coordinatorId,omitempty"`
	Patient           PersonRef    `json:"patient"`
	GP                PersonRef    `json:"gp"`
	PA                PersonRef    `json:"pa"`
	Expertise         ExpertiseRef `json:"expertise"`
	Ship              ShipRef      `json:"ship"`
}

// UpcomingFilter narrows the upcoming list. Zero values mean "no filter".
type UpcomingFilter struct {
	// DateTime matches dateOfAppointment exactly.
	DateTime *time.Time
	// From and To bound dateOfAppointment to whole UTC days, inclusive.
	From   *time.Time
	To     *time.Time
	Search string
}

type UpcomingQuery struct {
	pagination.Params
	UpcomingFilter
}
