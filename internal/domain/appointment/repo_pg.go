package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medroute/medroute/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, reason, date_of_appointment, status, patient_id, gp_id, doctor_id,
	doctor_expertise_id, coordinator_id, pa_id, ship_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.Reason, &a.DateOfAppointment, &a.Status, &a.PatientID, &a.GPID,
		&a.DoctorID, &a.DoctorExpertiseID, &a.CoordinatorID, &a.PAID, &a.ShipID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+apptCols, id, from, to))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("transition appointment %s: %w", id, err)
	}
	return a, err
}

func (r *repoPG) GetByIDAndStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	var a Appointment
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, status, doctor_id, doctor_expertise_id
		FROM appointments WHERE id = $1 AND status = $2`, id, status).
		Scan(&a.ID, &a.Status, &a.DoctorID, &a.DoctorExpertiseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return &a, nil
}

func (r *repoPG) HasExpertise(ctx context.Context, userID, expertiseID uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_expertise WHERE user_id = $1 AND expertise_id = $2)`,
		userID, expertiseID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check expertise: %w", err)
	}
	return ok, nil
}

func (r *repoPG) AssignDoctor(ctx context.Context, id, expertiseID, doctorID, coordinatorID uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET doctor_id = $4, coordinator_id = $5, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND doctor_expertise_id = $3
		RETURNING `+apptCols, id, StatusAccepted, expertiseID, doctorID, coordinatorID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("assign doctor to %s: %w", id, err)
	}
	return a, err
}

// upcomingJoins drops rows whose patient, GP or expertise cannot be resolved.
const upcomingJoins = `
	FROM appointments a
	JOIN users p ON p.id = a.patient_id
	JOIN users g ON g.id = a.gp_id
	JOIN expertise e ON e.id = a.doctor_expertise_id`

// upcomingWhere builds the WHERE clause shared by the list and count queries.
func upcomingWhere(f UpcomingFilter) (string, []interface{}) {
	statuses := make([]string, len(upcomingStatuses))
	for i, s := range upcomingStatuses {
		statuses[i] = string(s)
	}

	where := ` WHERE a.status = ANY($1)`
	args := []interface{}{statuses}
	idx := 2

	if f.DateTime != nil {
		where += fmt.Sprintf(` AND a.date_of_appointment = $%d`, idx)
		args = append(args, *f.DateTime)
		idx++
	}
	if f.From != nil {
		where += fmt.Sprintf(` AND a.date_of_appointment >= $%d`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		// To names a whole day; compare against the start of the next one.
		where += fmt.Sprintf(` AND a.date_of_appointment < $%d`, idx)
		args = append(args, f.To.AddDate(0, 0, 1))
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(` AND (a.reason ILIKE $%[1]d OR p.first_name ILIKE $%[1]d OR p.last_name ILIKE $%[1]d
			OR g.first_name ILIKE $%[1]d OR g.last_name ILIKE $%[1]d)`, idx)
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *repoPG) CountUpcoming(ctx context.Context, f UpcomingFilter) (int, error) {
	where, args := upcomingWhere(f)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+upcomingJoins+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count upcoming: %w", err)
	}
	return total, nil
}

func (r *repoPG) ListUpcoming(ctx context.Context, f UpcomingFilter, limit, offset int) ([]*Summary, error) {
	where, args := upcomingWhere(f)
	query := `SELECT a.id, a.reason, a.date_of_appointment, a.status,
		p.id, p.first_name, p.last_name, p.profile_pic,
		g.id, g.first_name, g.last_name, g.profile_pic,
		e.id, e.name` + upcomingJoins + where +
		fmt.Sprintf(` ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list upcoming: %w", err)
	}
	defer rows.Close()

	items := []*Summary{}
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Reason, &s.DateOfAppointment, &s.Status,
			&s.Patient.ID, &s.Patient.FirstName, &s.Patient.LastName, &s.Patient.ProfilePic,
			&s.GP.ID, &s.GP.FirstName, &s.GP.LastName, &s.GP.ProfilePic,
			&s.Expertise.ID, &s.Expertise.Name); err != nil {
			return nil, fmt.Errorf("scan upcoming: %w", err)
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	var d Detail
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT a.id, a.reason, a.date_of_appointment, a.status, a.doctor_id, a.coordinator_id,
			p.id, p.first_name, p.last_name, p.profile_pic,
			g.id, g.first_name, g.last_name, g.profile_pic,
			pa.id, pa.first_name, pa.last_name, pa.profile_pic,
			e.id, e.name,
			s.id, s.uid
		FROM appointments a
		JOIN users p ON p.id = a.patient_id
		JOIN users g ON g.id = a.gp_id
		JOIN users pa ON pa.id = a.pa_id
		JOIN expertise e ON e.id = a.doctor_expertise_id
		JOIN ships s ON s.id = a.ship_id
		WHERE a.id = $1`, id).
		Scan(&d.ID, &d.Reason, &d.DateOfAppointment, &d.Status, &d.DoctorID, &d.CoordinatorID,
			&d.Patient.ID, &d.Patient.FirstName, &d.Patient.LastName, &d.Patient.ProfilePic,
			&d.GP.ID, &d.GP.FirstName, &d.GP.LastName, &d.GP.ProfilePic,
			&d.PA.ID, &d.PA.FirstName, &d.PA.LastName, &d.PA.ProfilePic,
			&d.Expertise.ID, &d.Expertise.Name,
			&d.Ship.ID, &d.Ship.UID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment detail %s: %w", id, err)
	}
	return &d, nil
}

func (r *repoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	if err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check appointment %s: %w", id, err)
	}
	return ok, nil
}
