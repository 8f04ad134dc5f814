package actuator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for actuator persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves an actuator by its unique identifier.
	// Returns ErrNotFound if the actuator does not exist.
	GetByID(ctx context.Context, id string) (*Actuator, error)

	// List retrieves all actuators.
	List(ctx context.Context) ([]Actuator, error)

	// ListByKind retrieves all actuators of a specific kind.
	ListByKind(ctx context.Context, kind Kind) ([]Actuator, error)

	// ListByGreenhouse retrieves all actuators in a greenhouse.
	ListByGreenhouse(ctx context.Context, greenhouseID string) ([]Actuator, error)

	// Create inserts a new actuator.
	// Returns ErrExists if an actuator with the same ID already exists.
	Create(ctx context.Context, act *Actuator) error

	// Update modifies an existing actuator.
	// Returns ErrNotFound if the actuator does not exist.
	Update(ctx context.Context, act *Actuator) error

	// Delete removes an actuator by ID.
	// Returns ErrNotFound if the actuator does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateStatus updates only the protocol status fields.
	// This is the hot path for the dispatcher and confirmation tracker.
	UpdateStatus(ctx context.Context, id string, status Status, isActive bool) error

	// UpdateResult stores a terminal response: status, active flag and
	// the opaque result payload in one write.
	UpdateResult(ctx context.Context, id string, status Status, isActive bool, result json.RawMessage) error

	// UpdateAngle persists the commanded window angle.
	UpdateAngle(ctx context.Context, id string, angle int) error

	// MarkActivated records the time an activate command was issued.
	MarkActivated(ctx context.Context, id string, at time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const actuatorColumns = `id, name, kind, greenhouse_id, is_active, status,
	target_value, angle, last_activated, last_result, created_at, updated_at`

// GetByID retrieves an actuator by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Actuator, error) {
	query := `SELECT ` + actuatorColumns + ` FROM actuators WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	act, err := scanActuator(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying actuator by id: %w", err)
	}
	return act, nil
}

// List retrieves all actuators.
func (r *SQLiteRepository) List(ctx context.Context) ([]Actuator, error) {
	query := `SELECT ` + actuatorColumns + ` FROM actuators ORDER BY name`
	return r.queryActuators(ctx, query)
}

// ListByKind retrieves all actuators of a specific kind.
func (r *SQLiteRepository) ListByKind(ctx context.Context, kind Kind) ([]Actuator, error) {
	query := `SELECT ` + actuatorColumns + ` FROM actuators WHERE kind = ? ORDER BY name`
	return r.queryActuators(ctx, query, string(kind))
}

// ListByGreenhouse retrieves all actuators in a greenhouse.
func (r *SQLiteRepository) ListByGreenhouse(ctx context.Context, greenhouseID string) ([]Actuator, error) {
	query := `SELECT ` + actuatorColumns + ` FROM actuators WHERE greenhouse_id = ? ORDER BY name`
	return r.queryActuators(ctx, query, greenhouseID)
}

// Create inserts a new actuator.
func (r *SQLiteRepository) Create(ctx context.Context, act *Actuator) error {
	if err := act.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if act.CreatedAt.IsZero() {
		act.CreatedAt = now
	}
	act.UpdatedAt = now
	if act.Status == "" {
		act.Status = StatusIdle
	}

	query := `
		INSERT INTO actuators (
			id, name, kind, greenhouse_id, is_active, status,
			target_value, angle, last_activated, last_result, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		act.ID,
		act.Name,
		string(act.Kind),
		act.GreenhouseID,
		boolToInt(act.IsActive),
		string(act.Status),
		act.TargetValue,
		act.Angle,
		nullableTime(act.LastActivated),
		nullableBytes(act.LastResult),
		act.CreatedAt.Format(time.RFC3339),
		act.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting actuator: %w", err)
	}

	return nil
}

// Update modifies an existing actuator.
func (r *SQLiteRepository) Update(ctx context.Context, act *Actuator) error {
	if err := act.Validate(); err != nil {
		return err
	}

	act.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE actuators SET
			name = ?, kind = ?, greenhouse_id = ?, is_active = ?, status = ?,
			target_value = ?, angle = ?, last_activated = ?, last_result = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		act.Name,
		string(act.Kind),
		act.GreenhouseID,
		boolToInt(act.IsActive),
		string(act.Status),
		act.TargetValue,
		act.Angle,
		nullableTime(act.LastActivated),
		nullableBytes(act.LastResult),
		act.UpdatedAt.Format(time.RFC3339),
		act.ID,
	)
	if err != nil {
		return fmt.Errorf("updating actuator: %w", err)
	}

	return requireRowsAffected(result, "updating actuator")
}

// Delete removes an actuator by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM actuators WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting actuator: %w", err)
	}
	return requireRowsAffected(result, "deleting actuator")
}

// UpdateStatus updates only the protocol status fields.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status Status, isActive bool) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	query := `
		UPDATE actuators
		SET status = ?, is_active = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(status),
		boolToInt(isActive),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating actuator status: %w", err)
	}
	return requireRowsAffected(result, "updating actuator status")
}

// UpdateResult stores a terminal response in one write.
func (r *SQLiteRepository) UpdateResult(ctx context.Context, id string, status Status, isActive bool, payload json.RawMessage) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	query := `
		UPDATE actuators
		SET status = ?, is_active = ?, last_result = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(status),
		boolToInt(isActive),
		nullableBytes(payload),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating actuator result: %w", err)
	}
	return requireRowsAffected(result, "updating actuator result")
}

// UpdateAngle persists the commanded window angle.
func (r *SQLiteRepository) UpdateAngle(ctx context.Context, id string, angle int) error {
	if angle < MinAngle || angle > MaxAngle {
		return ErrInvalidAngle
	}

	query := `
		UPDATE actuators
		SET angle = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		angle,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating actuator angle: %w", err)
	}
	return requireRowsAffected(result, "updating actuator angle")
}

// MarkActivated records the time an activate command was issued.
func (r *SQLiteRepository) MarkActivated(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE actuators
		SET last_activated = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		at.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("marking actuator activated: %w", err)
	}
	return requireRowsAffected(result, "marking actuator activated")
}

// queryActuators executes a query and returns a slice of actuators.
func (r *SQLiteRepository) queryActuators(ctx context.Context, query string, args ...any) ([]Actuator, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying actuators: %w", err)
	}
	defer rows.Close()

	var acts []Actuator
	for rows.Next() {
		act, err := scanActuator(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning actuator: %w", err)
		}
		acts = append(acts, *act)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actuators: %w", err)
	}

	return acts, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanActuator scans a row or rows result into an Actuator.
func scanActuator(scanner rowScanner) (*Actuator, error) {
	var a Actuator
	var kind, status string
	var isActive int
	var lastActivated, lastResult sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&kind,
		&a.GreenhouseID,
		&isActive,
		&status,
		&a.TargetValue,
		&a.Angle,
		&lastActivated,
		&lastResult,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Kind = Kind(kind)
	a.Status = Status(status)
	a.IsActive = isActive != 0

	if lastActivated.Valid {
		t, err := time.Parse(time.RFC3339, lastActivated.String)
		if err == nil {
			a.LastActivated = &t
		}
	}
	if lastResult.Valid && lastResult.String != "" {
		a.LastResult = json.RawMessage(lastResult.String)
	}

	var parseErr error
	a.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	a.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &a, nil
}

// requireRowsAffected converts a zero-row update into ErrNotFound.
func requireRowsAffected(result sql.Result, op string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: checking rows affected: %w", op, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// nullableBytes returns a sql.NullString for optional byte slices.
func nullableBytes(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
