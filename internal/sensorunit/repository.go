package sensorunit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for sensor unit persistence. It also
// covers the pending enrollment queue and threshold alerts, which live
// alongside the units and share their lifecycle.
type Repository interface {
	// GetByID retrieves a sensor unit by its unique identifier.
	// Returns ErrNotFound if the unit does not exist.
	GetByID(ctx context.Context, id string) (*SensorUnit, error)

	// List retrieves all sensor units.
	List(ctx context.Context) ([]SensorUnit, error)

	// ListByGreenhouse retrieves all sensor units in a greenhouse.
	ListByGreenhouse(ctx context.Context, greenhouseID string) ([]SensorUnit, error)

	// Create inserts a new sensor unit.
	// Returns ErrExists if a unit with the same ID already exists.
	Create(ctx context.Context, unit *SensorUnit) error

	// Update modifies an existing sensor unit.
	Update(ctx context.Context, unit *SensorUnit) error

	// Delete removes a sensor unit by ID.
	Delete(ctx context.Context, id string) error

	// RecordReadings stores the latest readings for a unit and advances
	// last_seen. Last seen never moves backwards: a report carrying an
	// older timestamp updates the readings but keeps the newer mark.
	RecordReadings(ctx context.Context, id string, readings map[string]float64, seenAt time.Time) error

	// SetDataFrequency updates the unit's reporting interval in seconds.
	SetDataFrequency(ctx context.Context, id string, seconds int) error

	// CreatePending records an enrollment request from an unknown
	// device. Repeated requests from the same device are collapsed into
	// the single existing row.
	CreatePending(ctx context.Context, reg *PendingRegistration) error

	// GetPending retrieves a pending registration by device ID.
	GetPending(ctx context.Context, deviceID string) (*PendingRegistration, error)

	// ListPending retrieves all pending registrations, oldest first.
	ListPending(ctx context.Context) ([]PendingRegistration, error)

	// DeletePending removes a pending registration, typically after the
	// administrator confirmed or rejected it.
	DeletePending(ctx context.Context, deviceID string) error

	// RaiseAlert records a threshold violation. Returns the stored
	// alert with its assigned ID.
	RaiseAlert(ctx context.Context, alert *Alert) error

	// ResolveAlert closes an open alert.
	// Returns ErrAlertNotFound if the alert does not exist or is
	// already resolved.
	ResolveAlert(ctx context.Context, id int64, at time.Time) error

	// ListOpenAlerts retrieves all unresolved alerts, newest first.
	ListOpenAlerts(ctx context.Context) ([]Alert, error)

	// ListAlertsByUnit retrieves all alerts for a unit, newest first.
	ListAlertsByUnit(ctx context.Context, unitID string) ([]Alert, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const unitColumns = `id, name, greenhouse_id, data_frequency, last_seen,
	last_readings, created_at, updated_at`

// GetByID retrieves a sensor unit by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*SensorUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM sensor_units WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	unit, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying sensor unit by id: %w", err)
	}
	return unit, nil
}

// List retrieves all sensor units.
func (r *SQLiteRepository) List(ctx context.Context) ([]SensorUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM sensor_units ORDER BY name`
	return r.queryUnits(ctx, query)
}

// ListByGreenhouse retrieves all sensor units in a greenhouse.
func (r *SQLiteRepository) ListByGreenhouse(ctx context.Context, greenhouseID string) ([]SensorUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM sensor_units WHERE greenhouse_id = ? ORDER BY name`
	return r.queryUnits(ctx, query, greenhouseID)
}

// Create inserts a new sensor unit.
func (r *SQLiteRepository) Create(ctx context.Context, unit *SensorUnit) error {
	if err := unit.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = now
	if unit.DataFrequency == 0 {
		unit.DataFrequency = DefaultDataFrequency
	}

	readings, err := marshalReadings(unit.LastReadings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sensor_units (
			id, name, greenhouse_id, data_frequency, last_seen,
			last_readings, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		unit.ID,
		unit.Name,
		unit.GreenhouseID,
		unit.DataFrequency,
		nullableTime(unit.LastSeen),
		readings,
		unit.CreatedAt.Format(time.RFC3339),
		unit.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrExists
		}
		return fmt.Errorf("inserting sensor unit: %w", err)
	}

	return nil
}

// Update modifies an existing sensor unit.
func (r *SQLiteRepository) Update(ctx context.Context, unit *SensorUnit) error {
	if err := unit.Validate(); err != nil {
		return err
	}

	unit.UpdatedAt = time.Now().UTC()

	readings, err := marshalReadings(unit.LastReadings)
	if err != nil {
		return err
	}

	query := `
		UPDATE sensor_units SET
			name = ?, greenhouse_id = ?, data_frequency = ?, last_seen = ?,
			last_readings = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		unit.Name,
		unit.GreenhouseID,
		unit.DataFrequency,
		nullableTime(unit.LastSeen),
		readings,
		unit.UpdatedAt.Format(time.RFC3339),
		unit.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sensor unit: %w", err)
	}

	return requireRowsAffected(result, "updating sensor unit")
}

// Delete removes a sensor unit by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensor_units WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sensor unit: %w", err)
	}
	return requireRowsAffected(result, "deleting sensor unit")
}

// RecordReadings stores the latest readings and advances last_seen.
// The MAX in the query keeps last_seen monotonic when reports arrive
// out of order; RFC3339 strings compare correctly lexicographically.
func (r *SQLiteRepository) RecordReadings(ctx context.Context, id string, readings map[string]float64, seenAt time.Time) error {
	payload, err := marshalReadings(readings)
	if err != nil {
		return err
	}

	seen := seenAt.UTC().Format(time.RFC3339)
	query := `
		UPDATE sensor_units
		SET last_readings = ?,
			last_seen = MAX(COALESCE(last_seen, ''), ?),
			updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		payload,
		seen,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("recording readings: %w", err)
	}
	return requireRowsAffected(result, "recording readings")
}

// SetDataFrequency updates the unit's reporting interval in seconds.
func (r *SQLiteRepository) SetDataFrequency(ctx context.Context, id string, seconds int) error {
	if seconds <= 0 {
		return ErrInvalidFrequency
	}

	query := `
		UPDATE sensor_units
		SET data_frequency = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		seconds,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("setting data frequency: %w", err)
	}
	return requireRowsAffected(result, "setting data frequency")
}

// CreatePending records an enrollment request from an unknown device.
// INSERT OR IGNORE keeps the first request's timestamp when the device
// retries its registration.
func (r *SQLiteRepository) CreatePending(ctx context.Context, reg *PendingRegistration) error {
	if reg.DeviceID == "" {
		return ErrInvalidID
	}
	if !reg.DeviceType.Valid() {
		return ErrInvalidDeviceType
	}
	if reg.RequestedAt.IsZero() {
		reg.RequestedAt = time.Now().UTC()
	}

	query := `
		INSERT OR IGNORE INTO pending_registrations (
			device_id, device_type, payload, requested_at
		) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		reg.DeviceID,
		string(reg.DeviceType),
		nullableBytes(reg.Payload),
		reg.RequestedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting pending registration: %w", err)
	}
	return nil
}

// GetPending retrieves a pending registration by device ID.
func (r *SQLiteRepository) GetPending(ctx context.Context, deviceID string) (*PendingRegistration, error) {
	query := `
		SELECT device_id, device_type, payload, requested_at
		FROM pending_registrations WHERE device_id = ?`

	row := r.db.QueryRowContext(ctx, query, deviceID)
	reg, err := scanPending(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying pending registration: %w", err)
	}
	return reg, nil
}

// ListPending retrieves all pending registrations, oldest first.
func (r *SQLiteRepository) ListPending(ctx context.Context) ([]PendingRegistration, error) {
	query := `
		SELECT device_id, device_type, payload, requested_at
		FROM pending_registrations ORDER BY requested_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying pending registrations: %w", err)
	}
	defer rows.Close()

	var regs []PendingRegistration
	for rows.Next() {
		reg, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pending registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending registrations: %w", err)
	}
	return regs, nil
}

// DeletePending removes a pending registration.
func (r *SQLiteRepository) DeletePending(ctx context.Context, deviceID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM pending_registrations WHERE device_id = ?", deviceID)
	if err != nil {
		return fmt.Errorf("deleting pending registration: %w", err)
	}
	return requireRowsAffected(result, "deleting pending registration")
}

// RaiseAlert records a threshold violation.
func (r *SQLiteRepository) RaiseAlert(ctx context.Context, alert *Alert) error {
	if alert.RaisedAt.IsZero() {
		alert.RaisedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alerts (greenhouse_id, unit_id, sensor_type, message, raised_at)
		VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		alert.Greenhouse,
		alert.UnitID,
		alert.SensorType,
		alert.Message,
		alert.RaisedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading alert id: %w", err)
	}
	alert.ID = id
	return nil
}

// ResolveAlert closes an open alert.
func (r *SQLiteRepository) ResolveAlert(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE alerts SET resolved_at = ?
		WHERE id = ? AND resolved_at IS NULL`

	result, err := r.db.ExecContext(ctx, query,
		at.UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("resolving alert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolving alert: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ListOpenAlerts retrieves all unresolved alerts, newest first.
func (r *SQLiteRepository) ListOpenAlerts(ctx context.Context) ([]Alert, error) {
	query := `
		SELECT id, greenhouse_id, unit_id, sensor_type, message, raised_at, resolved_at
		FROM alerts WHERE resolved_at IS NULL ORDER BY raised_at DESC`
	return r.queryAlerts(ctx, query)
}

// ListAlertsByUnit retrieves all alerts for a unit, newest first.
func (r *SQLiteRepository) ListAlertsByUnit(ctx context.Context, unitID string) ([]Alert, error) {
	query := `
		SELECT id, greenhouse_id, unit_id, sensor_type, message, raised_at, resolved_at
		FROM alerts WHERE unit_id = ? ORDER BY raised_at DESC`
	return r.queryAlerts(ctx, query, unitID)
}

// queryUnits executes a query and returns a slice of sensor units.
func (r *SQLiteRepository) queryUnits(ctx context.Context, query string, args ...any) ([]SensorUnit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sensor units: %w", err)
	}
	defer rows.Close()

	var units []SensorUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor unit: %w", err)
		}
		units = append(units, *unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor units: %w", err)
	}
	return units, nil
}

// queryAlerts executes a query and returns a slice of alerts.
func (r *SQLiteRepository) queryAlerts(ctx context.Context, query string, args ...any) ([]Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUnit scans a row or rows result into a SensorUnit.
func scanUnit(scanner rowScanner) (*SensorUnit, error) {
	var u SensorUnit
	var lastSeen sql.NullString
	var readings string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&u.ID,
		&u.Name,
		&u.GreenhouseID,
		&u.DataFrequency,
		&lastSeen,
		&readings,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastSeen.Valid {
		t, err := time.Parse(time.RFC3339, lastSeen.String)
		if err == nil {
			u.LastSeen = &t
		}
	}

	if readings != "" {
		if err := json.Unmarshal([]byte(readings), &u.LastReadings); err != nil {
			return nil, fmt.Errorf("parsing last_readings: %w", err)
		}
	}
	if u.LastReadings == nil {
		u.LastReadings = map[string]float64{}
	}

	var parseErr error
	u.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	u.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &u, nil
}

// scanPending scans a row or rows result into a PendingRegistration.
func scanPending(scanner rowScanner) (*PendingRegistration, error) {
	var p PendingRegistration
	var deviceType string
	var payload sql.NullString
	var requestedAt string

	err := scanner.Scan(&p.DeviceID, &deviceType, &payload, &requestedAt)
	if err != nil {
		return nil, err
	}

	p.DeviceType = DeviceType(deviceType)
	if payload.Valid && payload.String != "" {
		p.Payload = json.RawMessage(payload.String)
	}

	p.RequestedAt, err = time.Parse(time.RFC3339, requestedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing requested_at: %w", err)
	}
	return &p, nil
}

// scanAlert scans a row or rows result into an Alert.
func scanAlert(scanner rowScanner) (*Alert, error) {
	var a Alert
	var raisedAt string
	var resolvedAt sql.NullString

	err := scanner.Scan(
		&a.ID,
		&a.Greenhouse,
		&a.UnitID,
		&a.SensorType,
		&a.Message,
		&raisedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	a.RaisedAt, err = time.Parse(time.RFC3339, raisedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing raised_at: %w", err)
	}
	if resolvedAt.Valid {
		t, err := time.Parse(time.RFC3339, resolvedAt.String)
		if err == nil {
			a.ResolvedAt = &t
		}
	}
	return &a, nil
}

// marshalReadings encodes the readings map for storage. A nil map is
// stored as an empty object so scans never see NULL.
func marshalReadings(readings map[string]float64) (string, error) {
	if readings == nil {
		return "{}", nil
	}
	b, err := json.Marshal(readings)
	if err != nil {
		return "", fmt.Errorf("encoding readings: %w", err)
	}
	return string(b), nil
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

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
