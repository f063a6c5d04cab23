package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// SQLiteStore handles SQLite database operations. It serves single-node
// deployments and development, behind the same DataStore interface as
// PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/crisislink.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/crisislink.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		badge TEXT UNIQUE NOT NULL,
		phone TEXT DEFAULT '',
		status TEXT NOT NULL DEFAULT 'available',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		description TEXT DEFAULT '',
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		reporter_id TEXT DEFAULT '',
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		resolved_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_agents_badge ON agents(badge);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
	CREATE INDEX IF NOT EXISTS idx_alerts_resolved_at ON alerts(resolved_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAgent creates a new agent record.
func (s *SQLiteStore) CreateAgent(ctx context.Context, name, badge, phone string) (*models.Agent, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, badge, phone, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id.String(), name, badge, phone, models.AgentAvailable, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetAgentByID(ctx, id)
}

// GetAgentByID retrieves an agent by ID.
func (s *SQLiteStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT id, name, badge, phone, status, created_at, updated_at
		FROM agents WHERE id = ?
	`, id.String()))
}

// GetAgentByBadge retrieves an agent by badge number.
func (s *SQLiteStore) GetAgentByBadge(ctx context.Context, badge string) (*models.Agent, error) {
	return s.scanAgent(s.db.QueryRowContext(ctx, `
		SELECT id, name, badge, phone, status, created_at, updated_at
		FROM agents WHERE badge = ?
	`, badge))
}

func (s *SQLiteStore) scanAgent(row *sql.Row) (*models.Agent, error) {
	agent := &models.Agent{}
	var idStr string
	err := row.Scan(
		&idStr,
		&agent.Name,
		&agent.Badge,
		&agent.Phone,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	agent.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// UpdateAgentStatus sets an agent's availability.
func (s *SQLiteStore) UpdateAgentStatus(ctx context.Context, id uuid.UUID, status models.AgentStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE agents SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id.String())
	return err
}

// CountAgents returns the total number of registered agents.
func (s *SQLiteStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// CreateAlert persists a newly raised SOS alert.
func (s *SQLiteStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, description, lat, lng, reporter_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID.String(), alert.Type, alert.Description, alert.Lat, alert.Lng,
		alert.ReporterID, alert.Status, alert.CreatedAt)
	return err
}

// GetAlert retrieves an alert by ID.
func (s *SQLiteStore) GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, description, lat, lng, reporter_id, status, created_at, resolved_at
		FROM alerts WHERE id = ?
	`, id.String())

	alert, err := scanAlertRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return alert, nil
}

// ListActiveAlerts retrieves all alerts not yet in a terminal status.
func (s *SQLiteStore) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, description, lat, lng, reporter_id, status, created_at, resolved_at
		FROM alerts
		WHERE status NOT IN (?, ?)
		ORDER BY created_at DESC
	`, models.StatusCompleted, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlertRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// ArchiveAlert records the terminal status and resolution time.
func (s *SQLiteStore) ArchiveAlert(ctx context.Context, id uuid.UUID, status models.Status, resolvedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, resolved_at = ? WHERE id = ?
	`, status, resolvedAt, id.String())
	return err
}

// ListAlertHistory retrieves resolved alerts with pagination.
func (s *SQLiteStore) ListAlertHistory(ctx context.Context, limit, offset int) ([]models.Alert, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts WHERE status IN (?, ?)
	`, models.StatusCompleted, models.StatusCancelled).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, description, lat, lng, reporter_id, status, created_at, resolved_at
		FROM alerts
		WHERE status IN (?, ?)
		ORDER BY resolved_at DESC
		LIMIT ? OFFSET ?
	`, models.StatusCompleted, models.StatusCancelled, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlertRow(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, total, rows.Err()
}

// CountActiveAlerts returns the number of alerts still live.
func (s *SQLiteStore) CountActiveAlerts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts WHERE status NOT IN (?, ?)
	`, models.StatusCompleted, models.StatusCancelled).Scan(&count)
	return count, err
}

// scanAlertRow scans one alert row through a driver-agnostic scan func,
// parsing the text UUID SQLite stores.
func scanAlertRow(scan func(dest ...any) error) (*models.Alert, error) {
	alert := &models.Alert{}
	var idStr string
	err := scan(
		&idStr,
		&alert.Type,
		&alert.Description,
		&alert.Lat,
		&alert.Lng,
		&alert.ReporterID,
		&alert.Status,
		&alert.CreatedAt,
		&alert.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	alert.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return alert, nil
}
