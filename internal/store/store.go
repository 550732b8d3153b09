// Package store provides SQLite-backed persistence for templates and
// demands. Nested documents (tabs, fields, tasks, values) live in JSON
// columns; the computation engines never touch this package.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fbastos/demandboard/internal/types"
)

// ErrNotFound is returned when a template or demand does not exist.
var ErrNotFound = errors.New("not found")

// Store provides access to the demandboard SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a Store at dbPath and runs migrations. Use ":memory:"
// for an ephemeral database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite supports a single writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB exposes the underlying handle for collaborators that keep their
// own tables in the same database (the activity store).
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		average_duration_days INTEGER NOT NULL DEFAULT 0,
		tabs TEXT NOT NULL DEFAULT '[]',
		fields TEXT NOT NULL DEFAULT '[]',
		tasks TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS demands (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'created',
		owner_id TEXT,
		expected_duration_days INTEGER NOT NULL DEFAULT 0,
		field_values TEXT NOT NULL DEFAULT '{}',
		task_statuses TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		forecast_at DATETIME NOT NULL,
		finished_at DATETIME,
		on_time INTEGER NOT NULL DEFAULT 1,
		FOREIGN KEY (template_id) REFERENCES templates(id)
	);

	CREATE INDEX IF NOT EXISTS idx_demands_template ON demands(template_id);
	CREATE INDEX IF NOT EXISTS idx_demands_status ON demands(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// ── Templates ───────────────────────────────────────────────────────

// CreateTemplate inserts a template, assigning an id and timestamps
// when absent.
func (s *Store) CreateTemplate(ctx context.Context, tpl *types.Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	tabs, fields, tasks, err := marshalTemplateDocs(tpl)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, average_duration_days, tabs, fields, tasks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.Name, tpl.AverageDurationDays, tabs, fields, tasks, tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// GetTemplate fetches one template by id.
func (s *Store) GetTemplate(ctx context.Context, id string) (*types.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, average_duration_days, tabs, fields, tasks, created_at, updated_at
		FROM templates WHERE id = ?`, id)
	return scanTemplate(row)
}

// ListTemplates returns all templates ordered by name.
func (s *Store) ListTemplates(ctx context.Context) ([]types.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, average_duration_days, tabs, fields, tasks, created_at, updated_at
		FROM templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []types.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tpl)
	}
	return out, rows.Err()
}

// UpdateTemplate rewrites a template row.
func (s *Store) UpdateTemplate(ctx context.Context, tpl *types.Template) error {
	tpl.UpdatedAt = time.Now().UTC()
	tabs, fields, tasks, err := marshalTemplateDocs(tpl)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET name = ?, average_duration_days = ?, tabs = ?, fields = ?, tasks = ?, updated_at = ?
		WHERE id = ?`,
		tpl.Name, tpl.AverageDurationDays, tabs, fields, tasks, tpl.UpdatedAt, tpl.ID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireRow(res)
}

// DeleteTemplate removes a template by id.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireRow(res)
}

// ── Demands ─────────────────────────────────────────────────────────

// CreateDemand inserts a demand, assigning an id when absent.
func (s *Store) CreateDemand(ctx context.Context, d *types.Demand) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	values, statuses, err := marshalDemandDocs(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO demands (id, template_id, name, status, owner_id, expected_duration_days,
			field_values, task_statuses, created_at, forecast_at, finished_at, on_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TemplateID, d.Name, string(d.Status), d.OwnerID, d.ExpectedDurationDays,
		values, statuses, d.CreatedAt, d.ForecastAt, nullableTime(d.FinishedAt), d.OnTime,
	)
	if err != nil {
		return fmt.Errorf("insert demand: %w", err)
	}
	return nil
}

// GetDemand fetches one demand by id.
func (s *Store) GetDemand(ctx context.Context, id string) (*types.Demand, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, name, status, owner_id, expected_duration_days,
			field_values, task_statuses, created_at, forecast_at, finished_at, on_time
		FROM demands WHERE id = ?`, id)
	return scanDemand(row)
}

// ListDemands returns all demands, creation order.
func (s *Store) ListDemands(ctx context.Context) ([]types.Demand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, name, status, owner_id, expected_duration_days,
			field_values, task_statuses, created_at, forecast_at, finished_at, on_time
		FROM demands ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list demands: %w", err)
	}
	defer rows.Close()

	var out []types.Demand
	for rows.Next() {
		d, err := scanDemand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateDemand rewrites a demand row.
func (s *Store) UpdateDemand(ctx context.Context, d *types.Demand) error {
	values, statuses, err := marshalDemandDocs(d)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE demands
		SET name = ?, status = ?, owner_id = ?, expected_duration_days = ?,
			field_values = ?, task_statuses = ?, forecast_at = ?, finished_at = ?, on_time = ?
		WHERE id = ?`,
		d.Name, string(d.Status), d.OwnerID, d.ExpectedDurationDays,
		values, statuses, d.ForecastAt, nullableTime(d.FinishedAt), d.OnTime, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update demand: %w", err)
	}
	return requireRow(res)
}

// DeleteDemand removes a demand by id.
func (s *Store) DeleteDemand(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM demands WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete demand: %w", err)
	}
	return requireRow(res)
}

// ── Row plumbing ────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*types.Template, error) {
	var tpl types.Template
	var tabs, fields, tasks []byte
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.AverageDurationDays, &tabs, &fields, &tasks, &tpl.CreatedAt, &tpl.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	if err := json.Unmarshal(tabs, &tpl.Tabs); err != nil {
		return nil, fmt.Errorf("decode tabs: %w", err)
	}
	if err := json.Unmarshal(fields, &tpl.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(tasks, &tpl.Tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return &tpl, nil
}

func scanDemand(row rowScanner) (*types.Demand, error) {
	var d types.Demand
	var status string
	var owner sql.NullString
	var values, statuses []byte
	var finished sql.NullTime
	err := row.Scan(&d.ID, &d.TemplateID, &d.Name, &status, &owner, &d.ExpectedDurationDays,
		&values, &statuses, &d.CreatedAt, &d.ForecastAt, &finished, &d.OnTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan demand: %w", err)
	}
	d.Status = types.DemandStatus(status)
	d.OwnerID = owner.String
	if finished.Valid {
		t := finished.Time
		d.FinishedAt = &t
	}
	if err := json.Unmarshal(values, &d.FieldValues); err != nil {
		return nil, fmt.Errorf("decode field values: %w", err)
	}
	if err := json.Unmarshal(statuses, &d.TaskStatuses); err != nil {
		return nil, fmt.Errorf("decode task statuses: %w", err)
	}
	return &d, nil
}

func marshalTemplateDocs(tpl *types.Template) (tabs, fields, tasks []byte, err error) {
	if tabs, err = json.Marshal(orEmptyTabs(tpl.Tabs)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode tabs: %w", err)
	}
	if fields, err = json.Marshal(orEmptyFields(tpl.Fields)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	if tasks, err = json.Marshal(orEmptyTasks(tpl.Tasks)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode tasks: %w", err)
	}
	return tabs, fields, tasks, nil
}

func marshalDemandDocs(d *types.Demand) (values, statuses []byte, err error) {
	fv := d.FieldValues
	if fv == nil {
		fv = map[string]string{}
	}
	if values, err = json.Marshal(fv); err != nil {
		return nil, nil, fmt.Errorf("encode field values: %w", err)
	}
	ts := d.TaskStatuses
	if ts == nil {
		ts = []types.TaskStatus{}
	}
	if statuses, err = json.Marshal(ts); err != nil {
		return nil, nil, fmt.Errorf("encode task statuses: %w", err)
	}
	return values, statuses, nil
}

func orEmptyTabs(t []types.Tab) []types.Tab {
	if t == nil {
		return []types.Tab{}
	}
	return t
}

func orEmptyFields(f []types.FieldDefinition) []types.FieldDefinition {
	if f == nil {
		return []types.FieldDefinition{}
	}
	return f
}

func orEmptyTasks(t []types.TaskDefinition) []types.TaskDefinition {
	if t == nil {
		return []types.TaskDefinition{}
	}
	return t
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
