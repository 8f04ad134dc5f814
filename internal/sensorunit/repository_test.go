package sensorunit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the sensor
// unit, pending registration and alert tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE sensor_units (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL DEFAULT '',
			greenhouse_id   TEXT NOT NULL,
			data_frequency  INTEGER NOT NULL DEFAULT 60,
			last_seen       TEXT,
			last_readings   TEXT NOT NULL DEFAULT '{}',
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);
		CREATE TABLE pending_registrations (
			device_id       TEXT PRIMARY KEY,
			device_type     TEXT NOT NULL DEFAULT 'sensor'
			                CHECK (device_type IN ('sensor', 'actuator')),
			payload         TEXT,
			requested_at    TEXT NOT NULL
		);
		CREATE TABLE alerts (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			greenhouse_id   TEXT NOT NULL,
			unit_id         TEXT NOT NULL,
			sensor_type     TEXT NOT NULL,
			message         TEXT NOT NULL,
			raised_at       TEXT NOT NULL,
			resolved_at     TEXT
		);`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	return db
}

func testUnit(id string) *SensorUnit {
	return &SensorUnit{
		ID:           id,
		Name:         "Bench " + id,
		GreenhouseID: "greenhouse-1",
	}
}

func TestCreate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	unit := testUnit("unit-1")
	if err := repo.Create(ctx, unit); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if unit.DataFrequency != DefaultDataFrequency {
		t.Errorf("DataFrequency = %d, want default %d", unit.DataFrequency, DefaultDataFrequency)
	}
	if unit.CreatedAt.IsZero() || unit.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testUnit("unit-1")); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if err := repo.Create(ctx, testUnit("unit-1")); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Create() error = %v, want ErrExists", err)
	}
}

func TestCreate_InvalidID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.Create(context.Background(), testUnit(""))
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("Create() error = %v, want ErrInvalidID", err)
	}
}

func TestGetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	seen := time.Now().UTC().Truncate(time.Second)
	unit := testUnit("unit-1")
	unit.DataFrequency = 30
	unit.LastSeen = &seen
	unit.LastReadings = map[string]float64{"temperature": 24.5, "humidity": 61}

	if err := repo.Create(ctx, unit); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != unit.Name {
		t.Errorf("Name = %q, want %q", got.Name, unit.Name)
	}
	if got.DataFrequency != 30 {
		t.Errorf("DataFrequency = %d, want 30", got.DataFrequency)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, seen)
	}
	if got.LastReadings["temperature"] != 24.5 {
		t.Errorf("LastReadings[temperature] = %v, want 24.5", got.LastReadings["temperature"])
	}
	if got.LastReadings["humidity"] != 61 {
		t.Errorf("LastReadings[humidity] = %v, want 61", got.LastReadings["humidity"])
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"unit-b", "unit-a"} {
		if err := repo.Create(ctx, testUnit(id)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	units, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("List() returned %d units, want 2", len(units))
	}
	if units[0].ID != "unit-a" {
		t.Errorf("List() not ordered by name: first = %q", units[0].ID)
	}
}

func TestListByGreenhouse(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := testUnit("unit-a")
	b := testUnit("unit-b")
	b.GreenhouseID = "greenhouse-2"
	for _, u := range []*SensorUnit{a, b} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	units, err := repo.ListByGreenhouse(ctx, "greenhouse-2")
	if err != nil {
		t.Fatalf("ListByGreenhouse() error = %v", err)
	}
	if len(units) != 1 || units[0].ID != "unit-b" {
		t.Errorf("ListByGreenhouse() = %v, want only unit-b", units)
	}
}

func TestUpdate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	unit := testUnit("unit-1")
	if err := repo.Create(ctx, unit); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	unit.Name = "Renamed"
	unit.DataFrequency = 15
	if err := repo.Update(ctx, unit); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Renamed" || got.DataFrequency != 15 {
		t.Errorf("Update() not persisted: got %+v", got)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.Update(context.Background(), testUnit("ghost"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testUnit("unit-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, "unit-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "unit-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRecordReadings(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testUnit("unit-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	seen := time.Now().UTC().Truncate(time.Second)
	readings := map[string]float64{"soil_moisture": 41.2}
	if err := repo.RecordReadings(ctx, "unit-1", readings, seen); err != nil {
		t.Fatalf("RecordReadings() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastReadings["soil_moisture"] != 41.2 {
		t.Errorf("LastReadings = %v, want soil_moisture 41.2", got.LastReadings)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, seen)
	}
}

func TestRecordReadings_LastSeenMonotonic(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testUnit("unit-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newer := time.Now().UTC().Truncate(time.Second)
	older := newer.Add(-time.Hour)

	if err := repo.RecordReadings(ctx, "unit-1", map[string]float64{"temperature": 20}, newer); err != nil {
		t.Fatalf("RecordReadings() error = %v", err)
	}
	if err := repo.RecordReadings(ctx, "unit-1", map[string]float64{"temperature": 21}, older); err != nil {
		t.Fatalf("RecordReadings() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastReadings["temperature"] != 21 {
		t.Errorf("readings should take the latest report: got %v", got.LastReadings)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(newer) {
		t.Errorf("LastSeen moved backwards: got %v, want %v", got.LastSeen, newer)
	}
}

func TestRecordReadings_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.RecordReadings(context.Background(), "ghost", nil, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordReadings() error = %v, want ErrNotFound", err)
	}
}

func TestSetDataFrequency(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testUnit("unit-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.SetDataFrequency(ctx, "unit-1", 10); err != nil {
		t.Fatalf("SetDataFrequency() error = %v", err)
	}
	got, err := repo.GetByID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DataFrequency != 10 {
		t.Errorf("DataFrequency = %d, want 10", got.DataFrequency)
	}

	if err := repo.SetDataFrequency(ctx, "unit-1", 0); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("SetDataFrequency(0) error = %v, want ErrInvalidFrequency", err)
	}
}

func TestCreatePending_Idempotent(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	first := &PendingRegistration{
		DeviceID:    "new-device",
		DeviceType:  DeviceSensor,
		Payload:     []byte(`{"unique_identifier":"new-device"}`),
		RequestedAt: time.Now().UTC().Add(-time.Minute).Truncate(time.Second),
	}
	if err := repo.CreatePending(ctx, first); err != nil {
		t.Fatalf("CreatePending() error = %v", err)
	}

	// Retried registration must not error or update the original row.
	retry := &PendingRegistration{DeviceID: "new-device", DeviceType: DeviceSensor}
	if err := repo.CreatePending(ctx, retry); err != nil {
		t.Fatalf("retried CreatePending() error = %v", err)
	}

	got, err := repo.GetPending(ctx, "new-device")
	if err != nil {
		t.Fatalf("GetPending() error = %v", err)
	}
	if !got.RequestedAt.Equal(first.RequestedAt) {
		t.Errorf("RequestedAt = %v, want original %v", got.RequestedAt, first.RequestedAt)
	}
	if string(got.Payload) != string(first.Payload) {
		t.Errorf("Payload = %s, want original payload", got.Payload)
	}
}

func TestCreatePending_Validation(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.CreatePending(ctx, &PendingRegistration{DeviceType: DeviceSensor})
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("empty device id error = %v, want ErrInvalidID", err)
	}

	err = repo.CreatePending(ctx, &PendingRegistration{DeviceID: "d", DeviceType: "toaster"})
	if !errors.Is(err, ErrInvalidDeviceType) {
		t.Errorf("bad device type error = %v, want ErrInvalidDeviceType", err)
	}
}

func TestListPending(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"late", "early"} {
		reg := &PendingRegistration{
			DeviceID:    id,
			DeviceType:  DeviceActuator,
			RequestedAt: base.Add(-time.Duration(i) * time.Minute),
		}
		if err := repo.CreatePending(ctx, reg); err != nil {
			t.Fatalf("CreatePending(%s) error = %v", id, err)
		}
	}

	regs, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("ListPending() returned %d, want 2", len(regs))
	}
	if regs[0].DeviceID != "early" {
		t.Errorf("ListPending() not oldest first: first = %q", regs[0].DeviceID)
	}
}

func TestDeletePending(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	reg := &PendingRegistration{DeviceID: "d", DeviceType: DeviceSensor}
	if err := repo.CreatePending(ctx, reg); err != nil {
		t.Fatalf("CreatePending() error = %v", err)
	}
	if err := repo.DeletePending(ctx, "d"); err != nil {
		t.Fatalf("DeletePending() error = %v", err)
	}
	if err := repo.DeletePending(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePending() error = %v, want ErrNotFound", err)
	}
}

func TestRaiseAndResolveAlert(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	alert := &Alert{
		Greenhouse: "greenhouse-1",
		UnitID:     "unit-1",
		SensorType: "temperature",
		Message:    "temperature 38.2 above limit 35.0",
	}
	if err := repo.RaiseAlert(ctx, alert); err != nil {
		t.Fatalf("RaiseAlert() error = %v", err)
	}
	if alert.ID == 0 {
		t.Fatal("RaiseAlert() did not assign an ID")
	}

	open, err := repo.ListOpenAlerts(ctx)
	if err != nil {
		t.Fatalf("ListOpenAlerts() error = %v", err)
	}
	if len(open) != 1 || !open[0].Open() {
		t.Fatalf("ListOpenAlerts() = %v, want one open alert", open)
	}

	if err := repo.ResolveAlert(ctx, alert.ID, time.Now()); err != nil {
		t.Fatalf("ResolveAlert() error = %v", err)
	}

	open, err = repo.ListOpenAlerts(ctx)
	if err != nil {
		t.Fatalf("ListOpenAlerts() error = %v", err)
	}
	if len(open) != 0 {
		t.Errorf("ListOpenAlerts() after resolve = %v, want empty", open)
	}

	// Resolving twice reports the alert as gone.
	if err := repo.ResolveAlert(ctx, alert.ID, time.Now()); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("second ResolveAlert() error = %v, want ErrAlertNotFound", err)
	}
}

func TestListAlertsByUnit(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, unitID := range []string{"unit-1", "unit-1", "unit-2"} {
		alert := &Alert{
			Greenhouse: "greenhouse-1",
			UnitID:     unitID,
			SensorType: "humidity",
			Message:    "humidity out of range",
			RaisedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.RaiseAlert(ctx, alert); err != nil {
			t.Fatalf("RaiseAlert() error = %v", err)
		}
	}

	alerts, err := repo.ListAlertsByUnit(ctx, "unit-1")
	if err != nil {
		t.Fatalf("ListAlertsByUnit() error = %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("ListAlertsByUnit() returned %d, want 2", len(alerts))
	}
	if !alerts[0].RaisedAt.After(alerts[1].RaisedAt) {
		t.Error("ListAlertsByUnit() not newest first")
	}
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		dt    DeviceType
		valid bool
	}{
		{DeviceSensor, true},
		{DeviceActuator, true},
		{"", false},
		{"toaster", false},
	}
	for _, tt := range tests {
		if got := tt.dt.Valid(); got != tt.valid {
			t.Errorf("DeviceType(%q).Valid() = %v, want %v", tt.dt, got, tt.valid)
		}
	}
}
