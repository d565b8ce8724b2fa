package integration

import (
	"context"
	"testing"

	"github.com/medroute/medroute/internal/domain/appointment"
	"github.com/medroute/medroute/internal/platform/seed"
	"github.com/medroute/medroute/pkg/pagination"
)

func TestSeedInsert(t *testing.T) {
	ctx := context.Background()
	mustExec(t, `TRUNCATE appointments, user_expertise, ships, expertise, users`)

	cfg := seed.DefaultConfig()
	cfg.Appointments = 40
	ds, err := seed.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := seed.Insert(ctx, globalDB.Pool, ds); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var rows int
	if err := globalDB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&rows); err != nil {
		t.Fatalf("count appointments: %v", err)
	}
	if rows != len(ds.Appointments) {
		t.Errorf("expected %d appointments, got %d", len(ds.Appointments), rows)
	}

	upcoming := 0
	for _, a := range ds.Appointments {
		if a.Status != appointment.StatusDeclined {
			upcoming++
		}
	}
	svc, _ := newService()
	_, total, err := svc.ListUpcoming(ctx, appointment.UpcomingQuery{Params: pagination.New(1, pagination.MaxLimit)})
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if total != upcoming {
		t.Errorf("expected every seeded BOOKED or ACCEPTED appointment to be listed, want %d got %d", upcoming, total)
	}
}
