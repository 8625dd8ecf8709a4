package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/NoJuanNobody/home-health-aid-app/internal/domain"
)

type PostgresTimesheetsRepo struct {
	db *sql.DB
}

func NewPostgresTimesheetsRepo(db *sql.DB) *PostgresTimesheetsRepo {
	return &PostgresTimesheetsRepo{db: db}
}

const timesheetColumns = `
	timesheet_id::text,
	user_id::text,
	client_id::text,
	work_date,
	clock_in_at,
	clock_out_at,
	clock_in_location,
	clock_out_location,
	total_hours,
	overtime_hours,
	status,
	COALESCE(notes, ''),
	approved_by::text,
	approved_at,
	created_at,
	updated_at`

// CreateIfNoActive is a conditional insert: the row lands only when the
// (user, client) pair has no active timesheet. A partial unique index on
// (user_id, client_id) WHERE status = 'active' backs this up against races;
// both the zero-rows case and a unique violation map to ConflictError.
func (r *PostgresTimesheetsRepo) CreateIfNoActive(ctx context.Context, t *domain.Timesheet) error {
	if t.TimesheetID == "" {
		t.TimesheetID = uuid.NewString()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO timesheets (
			timesheet_id, user_id, client_id, work_date,
			total_hours, overtime_hours, status, notes, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, 0, 0, $5, NULLIF($6, ''), NOW(), NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM timesheets
			WHERE user_id = $2 AND client_id = $3 AND status = 'active'
		)`,
		t.TimesheetID, t.UserID, t.ClientID, t.WorkDate, t.Status, t.Notes,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.NewConflictError("an active timesheet already exists for this caregiver and client")
		}
		return fmt.Errorf("failed to insert timesheet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewConflictError("an active timesheet already exists for this caregiver and client")
	}
	return nil
}

func (r *PostgresTimesheetsRepo) Get(ctx context.Context, timesheetID string) (*domain.Timesheet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+timesheetColumns+` FROM timesheets WHERE timesheet_id = $1`, timesheetID)
	t, err := scanTimesheet(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("timesheet", timesheetID)
	}
	if err != nil {
		return nil, err
	}

	breaks, err := r.listBreaks(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	t.Breaks = breaks
	return t, nil
}

func (r *PostgresTimesheetsRepo) Update(ctx context.Context, t *domain.Timesheet) error {
	clockInLoc, err := marshalSnapshot(t.ClockInLocation)
	if err != nil {
		return err
	}
	clockOutLoc, err := marshalSnapshot(t.ClockOutLocation)
	if err != nil {
		return err
	}

	query := `
		UPDATE timesheets SET
			clock_in_at = $2,
			clock_out_at = $3,
			clock_in_location = $4,
			clock_out_location = $5,
			total_hours = $6,
			overtime_hours = $7,
			status = $8,
			notes = NULLIF($9, ''),
			approved_by = $10,
			approved_at = $11,
			updated_at = NOW()
		WHERE timesheet_id = $1`
	args := []any{
		t.TimesheetID, t.ClockInAt, t.ClockOutAt, clockInLoc, clockOutLoc,
		t.TotalHours, t.OvertimeHours, t.Status, t.Notes, t.ApprovedBy, t.ApprovedAt,
	}
	// Transitioning to active is conditional on no sibling being active for
	// the same (user, client) pair; the partial unique index backs this up
	// against concurrent transitions.
	if t.Status == domain.TimesheetActive {
		query += `
		AND NOT EXISTS (
			SELECT 1 FROM timesheets
			WHERE user_id = $12 AND client_id = $13
			  AND status = 'active' AND timesheet_id <> $1
		)`
		args = append(args, t.UserID, t.ClientID)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.NewConflictError("an active timesheet already exists for this caregiver and client")
		}
		return fmt.Errorf("failed to update timesheet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if t.Status == domain.TimesheetActive {
			return domain.NewConflictError("an active timesheet already exists for this caregiver and client")
		}
		return domain.NewNotFoundError("timesheet", t.TimesheetID)
	}
	return nil
}

func (r *PostgresTimesheetsRepo) List(ctx context.Context, f domain.TimesheetFilter) ([]*domain.Timesheet, error) {
	where := "1=1"
	args := []any{}
	argIdx := 1
	if f.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, f.UserID)
		argIdx++
	}
	if f.ClientID != "" {
		where += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, f.ClientID)
		argIdx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.StartDate != nil {
		where += fmt.Sprintf(" AND work_date >= $%d", argIdx)
		args = append(args, *f.StartDate)
		argIdx++
	}
	if f.EndDate != nil {
		where += fmt.Sprintf(" AND work_date <= $%d", argIdx)
		args = append(args, *f.EndDate)
		argIdx++
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+timesheetColumns+` FROM timesheets
		 WHERE `+where+`
		 ORDER BY work_date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Timesheet{}
	for rows.Next() {
		t, err := scanTimesheet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range out {
		breaks, err := r.listBreaks(ctx, t.TimesheetID)
		if err != nil {
			return nil, err
		}
		t.Breaks = breaks
	}
	return out, nil
}

func (r *PostgresTimesheetsRepo) AddBreak(ctx context.Context, b *domain.BreakInterval) error {
	if b.BreakID == "" {
		b.BreakID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO break_times (
			break_id, timesheet_id, start_time, end_time,
			break_type, duration_minutes, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NOW(), NOW())`,
		b.BreakID, b.TimesheetID, b.StartTime, b.EndTime,
		b.Kind, b.DurationMinutes, b.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert break: %w", err)
	}
	return nil
}

func (r *PostgresTimesheetsRepo) GetBreak(ctx context.Context, timesheetID, breakID string) (*domain.BreakInterval, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT break_id::text, timesheet_id::text, start_time, end_time,
		       break_type, duration_minutes, COALESCE(notes, ''), created_at, updated_at
		FROM break_times
		WHERE break_id = $1 AND timesheet_id = $2`, breakID, timesheetID)
	b, err := scanBreak(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("break", breakID)
	}
	return b, err
}

func (r *PostgresTimesheetsRepo) UpdateBreak(ctx context.Context, b *domain.BreakInterval) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE break_times SET
			end_time = $2,
			duration_minutes = $3,
			notes = NULLIF($4, ''),
			updated_at = NOW()
		WHERE break_id = $1`,
		b.BreakID, b.EndTime, b.DurationMinutes, b.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update break: %w", err)
	}
	return requireRow(res, "break", b.BreakID)
}

func (r *PostgresTimesheetsRepo) listBreaks(ctx context.Context, timesheetID string) ([]*domain.BreakInterval, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT break_id::text, timesheet_id::text, start_time, end_time,
		       break_type, duration_minutes, COALESCE(notes, ''), created_at, updated_at
		FROM break_times
		WHERE timesheet_id = $1
		ORDER BY start_time`, timesheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.BreakInterval{}
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanTimesheet(row rowScanner) (*domain.Timesheet, error) {
	var t domain.Timesheet
	var clockInLoc, clockOutLoc []byte
	var approvedBy sql.NullString
	if err := row.Scan(
		&t.TimesheetID, &t.UserID, &t.ClientID, &t.WorkDate,
		&t.ClockInAt, &t.ClockOutAt, &clockInLoc, &clockOutLoc,
		&t.TotalHours, &t.OvertimeHours, &t.Status, &t.Notes,
		&approvedBy, &t.ApprovedAt, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		t.ApprovedBy = &approvedBy.String
	}
	var err error
	if t.ClockInLocation, err = unmarshalSnapshot(clockInLoc); err != nil {
		return nil, fmt.Errorf("malformed clock_in_location on timesheet %s: %w", t.TimesheetID, err)
	}
	if t.ClockOutLocation, err = unmarshalSnapshot(clockOutLoc); err != nil {
		return nil, fmt.Errorf("malformed clock_out_location on timesheet %s: %w", t.TimesheetID, err)
	}
	return &t, nil
}

func scanBreak(row rowScanner) (*domain.BreakInterval, error) {
	var b domain.BreakInterval
	if err := row.Scan(
		&b.BreakID, &b.TimesheetID, &b.StartTime, &b.EndTime,
		&b.Kind, &b.DurationMinutes, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func marshalSnapshot(s *domain.LocationSnapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal location snapshot: %w", err)
	}
	return b, nil
}

func unmarshalSnapshot(b []byte) (*domain.LocationSnapshot, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var s domain.LocationSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
