// Package seed generates a reproducible synthetic dataset for development:
// users of every role, the expertise taxonomy, ships and appointments in
// BOOKED, ACCEPTED and DECLINED states.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medroute/medroute/internal/domain/appointment"
	"github.com/medroute/medroute/internal/platform/auth"
	"github.com/medroute/medroute/internal/platform/db"
)

type Config struct {
	Patients     int
	GPs          int
	Doctors      int
	PAs          int
	Coordinators int
	Ships        int
	Appointments int
	// Seed makes the dataset reproducible; equal seeds give equal data.
	Seed uint64
	// Now anchors appointment and creation dates.
	Now time.Time
}

func DefaultConfig() Config {
	return Config{
		Patients:     50,
		GPs:          8,
		Doctors:      12,
		PAs:          6,
		Coordinators: 3,
		Ships:        5,
		Appointments: 200,
		Seed:         42,
		Now:          time.Now().UTC().Truncate(time.Second),
	}
}

func (c Config) validate() error {
	if c.Patients < 1 || c.GPs < 1 || c.Doctors < 1 || c.PAs < 1 || c.Coordinators < 1 || c.Ships < 1 {
		return fmt.Errorf("seed config needs at least one user of every role and one ship")
	}
	if c.Appointments < 0 {
		return fmt.Errorf("appointments must not be negative, got %d", c.Appointments)
	}
	return nil
}

var specialties = []string{
	"Cardiology",
	"Dermatology",
	"Endocrinology",
	"General Practice",
	"Neurology",
	"Ophthalmology",
	"Orthopedics",
	"Pediatrics",
	"Psychiatry",
	"ENT",
}

var reasons = []string{
	"Chest pain on exertion",
	"Persistent skin rash",
	"Recurring migraines",
	"Follow-up after fracture",
	"Blurred vision",
	"Blood sugar review",
	"Anxiety and poor sleep",
	"Ear pain and hearing loss",
	"Child vaccination schedule",
	"Annual health check",
}

// Dataset is everything Generate produces, in insertion order.
type Dataset struct {
	Users         []*appointment.User
	Expertise     []*appointment.Expertise
	UserExpertise []*appointment.UserExpertise
	Ships         []*appointment.Ship
	Appointments  []*appointment.Appointment
}

type generator struct {
	f   *gofakeit.Faker
	now time.Time
}

func (g *generator) id() uuid.UUID {
	return uuid.MustParse(g.f.UUID())
}

func (g *generator) users(role string, n int) []*appointment.User {
	out := make([]*appointment.User, n)
	for i := range out {
		u := &appointment.User{
			ID:        g.id(),
			FirstName: g.f.FirstName(),
			LastName:  g.f.LastName(),
			Role:      role,
			CreatedAt: g.now,
		}
		if g.f.Bool() {
			pic := fmt.Sprintf("https://avatars.medroute.dev/%s.png", u.ID)
			u.ProfilePic = &pic
		}
		out[i] = u
	}
	return out
}

func pick[T any](f *gofakeit.Faker, items []T) T {
	return items[f.Number(0, len(items)-1)]
}

// Generate builds a dataset without touching the database.
func Generate(cfg Config) (*Dataset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &generator{f: gofakeit.New(cfg.Seed), now: cfg.Now}
	ds := &Dataset{}

	for _, name := range specialties {
		ds.Expertise = append(ds.Expertise, &appointment.Expertise{ID: g.id(), Name: name})
	}

	patients := g.users(auth.RolePatient, cfg.Patients)
	gps := g.users(auth.RoleGP, cfg.GPs)
	doctors := g.users(auth.RoleDoctor, cfg.Doctors)
	pas := g.users(auth.RolePA, cfg.PAs)
	coordinators := g.users(auth.RoleCoordinator, cfg.Coordinators)
	for _, group := range [][]*appointment.User{patients, gps, doctors, pas, coordinators} {
		ds.Users = append(ds.Users, group...)
	}

	// Every doctor practises one or two specialties.
	practitioners := make(map[uuid.UUID][]*appointment.User)
	for _, d := range doctors {
		first := g.f.Number(0, len(ds.Expertise)-1)
		picked := []int{first}
		if g.f.Bool() {
			picked = append(picked, (first+1+g.f.Number(0, len(ds.Expertise)-2))%len(ds.Expertise))
		}
		for _, idx := range picked {
			exp := ds.Expertise[idx]
			ds.UserExpertise = append(ds.UserExpertise, &appointment.UserExpertise{
				ID: g.id(), UserID: d.ID, ExpertiseID: exp.ID,
			})
			practitioners[exp.ID] = append(practitioners[exp.ID], d)
		}
	}

	for i := 0; i < cfg.Ships; i++ {
		ds.Ships = append(ds.Ships, &appointment.Ship{
			ID:   g.id(),
			UID:  fmt.Sprintf("SHIP-%03d", i+1),
			Name: g.f.Company(),
		})
	}

	for i := 0; i < cfg.Appointments; i++ {
		exp := pick(g.f, ds.Expertise)
		created := cfg.Now.Add(-time.Duration(cfg.Appointments-i) * time.Hour)
		a := &appointment.Appointment{
			ID:                g.id(),
			Reason:            pick(g.f, reasons),
			DateOfAppointment: g.f.DateRange(cfg.Now, cfg.Now.AddDate(0, 1, 0)).UTC().Truncate(time.Minute),
			Status:            appointment.StatusBooked,
			PatientID:         pick(g.f, patients).ID,
			GPID:              pick(g.f, gps).ID,
			DoctorExpertiseID: exp.ID,
			PAID:              pick(g.f, pas).ID,
			ShipID:            pick(g.f, ds.Ships).ID,
			CreatedAt:         created,
			UpdatedAt:         created,
		}

		switch roll := g.f.Number(1, 10); {
		case roll <= 2:
			a.Status = appointment.StatusDeclined
		case roll <= 6:
			a.Status = appointment.StatusAccepted
			if docs := practitioners[exp.ID]; len(docs) > 0 && g.f.Bool() {
				doctorID := pick(g.f, docs).ID
				coordinatorID := pick(g.f, coordinators).ID
				a.DoctorID = &doctorID
				a.CoordinatorID = &coordinatorID
			}
		}
		ds.Appointments = append(ds.Appointments, a)
	}

	return ds, nil
}

// Insert writes ds in a single transaction using COPY.
func Insert(ctx context.Context, pool *pgxpool.Pool, ds *Dataset) error {
	return db.WithTx(ctx, pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)

		tables := []struct {
			name string
			cols []string
			rows [][]interface{}
		}{
			{"users", []string{"id", "first_name", "last_name", "profile_pic", "role", "created_at"}, userRows(ds.Users)},
			{"expertise", []string{"id", "name"}, expertiseRows(ds.Expertise)},
			{"user_expertise", []string{"id", "user_id", "expertise_id"}, linkRows(ds.UserExpertise)},
			{"ships", []string{"id", "uid", "name"}, shipRows(ds.Ships)},
			{"appointments", []string{
				"id", "reason", "date_of_appointment", "status", "patient_id", "gp_id", "doctor_id",
				"doctor_expertise_id", "coordinator_id", "pa_id", "ship_id", "created_at", "updated_at",
			}, appointmentRows(ds.Appointments)},
		}

		for _, t := range tables {
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{t.name}, t.cols, pgx.CopyFromRows(t.rows)); err != nil {
				return fmt.Errorf("copy %s: %w", t.name, err)
			}
		}
		return nil
	})
}

func userRows(users []*appointment.User) [][]interface{} {
	rows := make([][]interface{}, len(users))
	for i, u := range users {
		rows[i] = []interface{}{u.ID, u.FirstName, u.LastName, u.ProfilePic, u.Role, u.CreatedAt}
	}
	return rows
}

func expertiseRows(items []*appointment.Expertise) [][]interface{} {
	rows := make([][]interface{}, len(items))
	for i, e := range items {
		rows[i] = []interface{}{e.ID, e.Name}
	}
	return rows
}

func linkRows(links []*appointment.UserExpertise) [][]interface{} {
	rows := make([][]interface{}, len(links))
	for i, l := range links {
		rows[i] = []interface{}{l.ID, l.UserID, l.ExpertiseID}
	}
	return rows
}

func shipRows(ships []*appointment.Ship) [][]interface{} {
	rows := make([][]interface{}, len(ships))
	for i, s := range ships {
		rows[i] = []interface{}{s.ID, s.UID, s.Name}
	}
	return rows
}

func appointmentRows(appts []*appointment.Appointment) [][]interface{} {
	rows := make([][]interface{}, len(appts))
	for i, a := range appts {
		rows[i] = []interface{}{
			a.ID, a.Reason, a.DateOfAppointment, string(a.Status), a.PatientID, a.GPID, a.DoctorID,
			a.DoctorExpertiseID, a.CoordinatorID, a.PAID, a.ShipID, a.CreatedAt, a.UpdatedAt,
		}
	}
	return rows
}
