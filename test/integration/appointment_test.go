package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medroute/medroute/internal/domain/appointment"
	"github.com/medroute/medroute/internal/platform/lock"
	"github.com/medroute/medroute/pkg/pagination"
)

func newService() (*appointment.Service, appointment.Repository) {
	repo := appointment.NewRepoPG(globalDB.Pool)
	return appointment.NewService(repo, lock.NewLocalLocker(), nil, zerolog.Nop()), repo
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, repo := newService()
	a := f.insert(t, f.row(appointment.StatusBooked, f.cardiology, 0))

	t.Run("BookedToAccepted", func(t *testing.T) {
		got, err := repo.TransitionStatus(ctx, a.ID, appointment.StatusBooked, appointment.StatusAccepted)
		if err != nil {
			t.Fatalf("TransitionStatus: %v", err)
		}
		if got.Status != appointment.StatusAccepted {
			t.Errorf("expected ACCEPTED, got %s", got.Status)
		}
		if got.DoctorID != nil || got.CoordinatorID != nil {
			t.Error("expected no allocation after accepting")
		}
		if !got.UpdatedAt.After(a.CreatedAt) {
			t.Errorf("expected updated_at to move forward, got %s", got.UpdatedAt)
		}
	})

	t.Run("SecondTransitionNotFound", func(t *testing.T) {
		_, err := repo.TransitionStatus(ctx, a.ID, appointment.StatusBooked, appointment.StatusDeclined)
		if !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if status, _, _ := storedAllocation(t, a.ID); status != string(appointment.StatusAccepted) {
			t.Errorf("expected status to stay ACCEPTED, got %s", status)
		}
	})

	t.Run("UnknownID", func(t *testing.T) {
		_, err := repo.TransitionStatus(ctx, uuid.New(), appointment.StatusBooked, appointment.StatusAccepted)
		if !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTransitionStatus_ConcurrentCallsSucceedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, _ := newService()
	a := f.insert(t, f.row(appointment.StatusBooked, f.cardiology, 0))

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, notFound := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := appointment.StatusAccepted
			if i%2 == 1 {
				status = appointment.StatusDeclined
			}
			_, err := svc.SetStatus(ctx, a.ID, status, f.coordinator)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, appointment.ErrNotFound):
				notFound++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 || notFound != workers-1 {
		t.Errorf("expected exactly one success, got %d successes and %d not found", succeeded, notFound)
	}
}

func TestAllocateDoctor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, repo := newService()

	t.Run("ExpertiseMismatchLeavesDoctorUnset", func(t *testing.T) {
		a := f.insert(t, f.row(appointment.StatusAccepted, f.cardiology, 0))
		err := svc.AllocateDoctor(ctx, a.ID, f.doctor, f.coordinator)
		if !errors.Is(err, appointment.ErrExpertiseMismatch) {
			t.Fatalf("expected ErrExpertiseMismatch, got %v", err)
		}
		if _, doctorID, coordinatorID := storedAllocation(t, a.ID); doctorID != nil || coordinatorID != nil {
			t.Error("expected doctor_id and coordinator_id to stay NULL")
		}
	})

	t.Run("NotAcceptedLeavesDoctorUnset", func(t *testing.T) {
		a := f.insert(t, f.row(appointment.StatusBooked, f.neurology, 1))
		err := svc.AllocateDoctor(ctx, a.ID, f.doctor, f.coordinator)
		if !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, doctorID, _ := storedAllocation(t, a.ID); doctorID != nil {
			t.Error("expected doctor_id to stay NULL")
		}
	})

	t.Run("MatchingExpertise", func(t *testing.T) {
		a := f.insert(t, f.row(appointment.StatusAccepted, f.neurology, 2))
		if err := svc.AllocateDoctor(ctx, a.ID, f.doctor, f.coordinator); err != nil {
			t.Fatalf("AllocateDoctor: %v", err)
		}
		status, doctorID, coordinatorID := storedAllocation(t, a.ID)
		if status != string(appointment.StatusAccepted) {
			t.Errorf("expected status to stay ACCEPTED, got %s", status)
		}
		if doctorID == nil || *doctorID != f.doctor {
			t.Errorf("expected doctor %s, got %v", f.doctor, doctorID)
		}
		if coordinatorID == nil || *coordinatorID != f.coordinator {
			t.Errorf("expected coordinator %s, got %v", f.coordinator, coordinatorID)
		}
	})

	t.Run("AssignDoctorChecksExpertise", func(t *testing.T) {
		a := f.insert(t, f.row(appointment.StatusAccepted, f.neurology, 3))
		_, err := repo.AssignDoctor(ctx, a.ID, f.cardiology, f.doctor, f.coordinator)
		if !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for a stale expertise, got %v", err)
		}
		if _, doctorID, _ := storedAllocation(t, a.ID); doctorID != nil {
			t.Error("expected doctor_id to stay NULL")
		}
	})
}

func TestGetDetail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, repo := newService()

	t.Run("AllRelationsResolved", func(t *testing.T) {
		a := f.insert(t, f.row(appointment.StatusBooked, f.cardiology, 0))
		d, err := svc.GetDetail(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetDetail: %v", err)
		}
		if d.Patient.FirstName != "Ada" || d.GP.LastName != "House" || d.PA.FirstName != "Pat" {
			t.Errorf("unexpected people: %+v %+v %+v", d.Patient, d.GP, d.PA)
		}
		if d.Expertise.Name != "Cardiology" || d.Ship.UID != "SHIP-001" {
			t.Errorf("unexpected expertise or ship: %+v %+v", d.Expertise, d.Ship)
		}
		if d.DoctorID != nil {
			t.Error("expected no doctor")
		}
	})

	for name, mutate := range map[string]func(r *apptRow){
		"MissingPA":        func(r *apptRow) { r.PAID = uuid.New() },
		"MissingShip":      func(r *apptRow) { r.ShipID = uuid.New() },
		"MissingPatient":   func(r *apptRow) { r.PatientID = uuid.New() },
		"MissingExpertise": func(r *apptRow) { r.ExpertiseID = uuid.New() },
	} {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			r := f.row(appointment.StatusBooked, f.cardiology, 1)
			mutate(&r)
			f.insert(t, r)

			if _, err := svc.GetDetail(ctx, r.ID); !errors.Is(err, appointment.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			exists, err := repo.Exists(ctx, r.ID)
			if err != nil || !exists {
				t.Errorf("expected the appointment row to exist, got %v, %v", exists, err)
			}
		})
	}

	t.Run("UnknownID", func(t *testing.T) {
		if _, err := svc.GetDetail(ctx, uuid.New()); !errors.Is(err, appointment.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestListUpcoming_Paging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, repo := newService()

	// Five listable rows, newest last.
	var listed []apptRow
	for i := 0; i < 5; i++ {
		status := appointment.StatusBooked
		if i%2 == 1 {
			status = appointment.StatusAccepted
		}
		listed = append(listed, f.insert(t, f.row(status, f.cardiology, i)))
	}

	// Excluded: declined, and rows whose patient, gp or expertise is missing.
	f.insert(t, f.row(appointment.StatusDeclined, f.cardiology, 10))
	missingPatient := f.row(appointment.StatusBooked, f.cardiology, 11)
	missingPatient.PatientID = uuid.New()
	f.insert(t, missingPatient)
	missingGP := f.row(appointment.StatusBooked, f.cardiology, 12)
	missingGP.GPID = uuid.New()
	f.insert(t, missingGP)
	missingExpertise := f.row(appointment.StatusAccepted, f.cardiology, 13)
	missingExpertise.ExpertiseID = uuid.New()
	f.insert(t, missingExpertise)

	// A missing PA or ship does not hide a row from the list.
	missingShip := f.row(appointment.StatusBooked, f.cardiology, 5)
	missingShip.ShipID = uuid.New()
	listed = append(listed, f.insert(t, missingShip))

	want := []uuid.UUID{listed[5].ID, listed[4].ID, listed[3].ID, listed[2].ID, listed[1].ID, listed[0].ID}

	items, total, err := svc.ListUpcoming(ctx, appointment.UpcomingQuery{Params: pagination.New(1, 4)})
	if err != nil {
		t.Fatalf("ListUpcoming page 1: %v", err)
	}
	if total != len(want) {
		t.Errorf("expected total %d, got %d", len(want), total)
	}
	assertIDs(t, "page 1", items, want[:4])

	count, err := repo.CountUpcoming(ctx, appointment.UpcomingFilter{})
	if err != nil {
		t.Fatalf("CountUpcoming: %v", err)
	}
	if count != total {
		t.Errorf("expected count %d to match the list total %d", count, total)
	}

	items, total, err = svc.ListUpcoming(ctx, appointment.UpcomingQuery{Params: pagination.New(2, 4)})
	if err != nil {
		t.Fatalf("ListUpcoming page 2: %v", err)
	}
	if total != 0 {
		t.Errorf("expected total 0 after the first page, got %d", total)
	}
	assertIDs(t, "page 2", items, want[4:])

	items, _, err = svc.ListUpcoming(ctx, appointment.UpcomingQuery{Params: pagination.New(1<<62, 4)})
	if err != nil {
		t.Fatalf("ListUpcoming far page: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no rows far past the end, got %d", len(items))
	}
}

func TestListUpcoming_TieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, _ := newService()

	a := f.insert(t, f.row(appointment.StatusBooked, f.cardiology, 0))
	b := f.row(appointment.StatusBooked, f.cardiology, 0)
	b.CreatedAt = a.CreatedAt
	f.insert(t, b)

	items, _, err := svc.ListUpcoming(ctx, appointment.UpcomingQuery{Params: pagination.New(1, 10)})
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID.String() < items[1].ID.String() {
		t.Errorf("expected id descending on equal created_at, got %s before %s", items[0].ID, items[1].ID)
	}
}

func TestListUpcoming_Filters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc, _ := newService()

	chest := f.row(appointment.StatusBooked, f.cardiology, 0)
	chest.Reason = "Chest pain after exercise"
	f.insert(t, chest)
	dose := f.row(appointment.StatusBooked, f.cardiology, 1)
	dose.Reason = "Dose at 100% of plan"
	f.insert(t, dose)
	later := f.row(appointment.StatusAccepted, f.neurology, 9)
	later.Reason = "Headache"
	f.insert(t, later)

	day := func(d int) *time.Time {
		v := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name   string
		filter appointment.UpcomingFilter
		want   []uuid.UUID
	}{
		{"reason is case insensitive", appointment.UpcomingFilter{Search: "CHEST"}, []uuid.UUID{chest.ID}},
		{"percent is literal", appointment.UpcomingFilter{Search: "100%"}, []uuid.UUID{dose.ID}},
		{"underscore is literal", appointment.UpcomingFilter{Search: "_"}, nil},
		{"patient name", appointment.UpcomingFilter{Search: "lovelace"}, []uuid.UUID{later.ID, dose.ID, chest.ID}},
		{"gp name", appointment.UpcomingFilter{Search: "hous"}, []uuid.UUID{later.ID, dose.ID, chest.ID}},
		{"exact datetime", appointment.UpcomingFilter{DateTime: &dose.Date}, []uuid.UUID{dose.ID}},
		{"inclusive day range", appointment.UpcomingFilter{From: day(1), To: day(2)}, []uuid.UUID{dose.ID, chest.ID}},
		{"range after all rows", appointment.UpcomingFilter{From: day(20)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := appointment.UpcomingQuery{Params: pagination.New(1, 10), UpcomingFilter: tt.filter}
			items, total, err := svc.ListUpcoming(ctx, q)
			if err != nil {
				t.Fatalf("ListUpcoming: %v", err)
			}
			if total != len(tt.want) {
				t.Errorf("expected total %d, got %d", len(tt.want), total)
			}
			assertIDs(t, tt.name, items, tt.want)
		})
	}
}

func assertIDs(t *testing.T, label string, items []*appointment.Summary, want []uuid.UUID) {
	t.Helper()
	if len(items) != len(want) {
		t.Fatalf("%s: expected %d items, got %d", label, len(want), len(items))
	}
	for i, it := range items {
		if it.ID != want[i] {
			t.Errorf("%s: item %d is %s, want %s", label, i, it.ID, want[i])
		}
		if it.Patient.FirstName == "" || it.GP.FirstName == "" || it.Expertise.Name == "" {
			t.Errorf("%s: item %d is missing embedded relations: %+v", label, i, it)
		}
	}
}
