package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateAgent creates a new agent record.
func (s *PostgresStore) CreateAgent(ctx context.Context, name, badge, phone string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO agents (name, badge, phone, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, badge, phone, status, created_at, updated_at
	`, name, badge, phone, models.AgentAvailable).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Badge,
		&agent.Phone,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// GetAgentByID retrieves an agent by ID.
func (s *PostgresStore) GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, badge, phone, status, created_at, updated_at
		FROM agents WHERE id = $1
	`, id).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Badge,
		&agent.Phone,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// GetAgentByBadge retrieves an agent by badge number.
func (s *PostgresStore) GetAgentByBadge(ctx context.Context, badge string) (*models.Agent, error) {
	agent := &models.Agent{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, badge, phone, status, created_at, updated_at
		FROM agents WHERE badge = $1
	`, badge).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Badge,
		&agent.Phone,
		&agent.Status,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return agent, nil
}

// UpdateAgentStatus sets an agent's availability.
func (s *PostgresStore) UpdateAgentStatus(ctx context.Context, id uuid.UUID, status models.AgentStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE agents SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	return err
}

// CountAgents returns the total number of registered agents.
func (s *PostgresStore) CountAgents(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	return count, err
}

// CreateAlert persists a newly raised SOS alert.
func (s *PostgresStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO alerts (id, type, description, lat, lng, reporter_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, alert.ID, alert.Type, alert.Description, alert.Lat, alert.Lng,
		alert.ReporterID, alert.Status).Scan(&alert.CreatedAt)
}

// GetAlert retrieves an alert by ID.
func (s *PostgresStore) GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	alert := &models.Alert{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, description, lat, lng, reporter_id, status, created_at, resolved_at
		FROM alerts WHERE id = $1
	`, id).Scan(
		&alert.ID,
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return alert, nil
}

// ListActiveAlerts retrieves all alerts not yet in a terminal status.
func (s *PostgresStore) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, description, lat, lng, reporter_id, status, created_at, resolved_at
		FROM alerts
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at DESC
	`, models.StatusCompleted, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlertRows(rows)
}

// ArchiveAlert records the terminal status and resolution time.
func (s *PostgresStore) ArchiveAlert(ctx context.Context, id uuid.UUID, status models.Status, resolvedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = $1, resolved_at = $2 WHERE id = $3
	`, status, resolvedAt, id)
	return err
}

// ListAlertHistory retrieves resolved alerts with pagination.
func (s *PostgresStore) ListAlertHistory(ctx context.Context, limit, offset int) ([]models.Alert, int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM alerts WHERE status IN ($1, $2)
	`, models.StatusCompleted, models.StatusCancelled).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, type, description, lat, lng, reporter_id, status, created_at, resolved_at
		FROM alerts
		WHERE status IN ($1, $2)
		ORDER BY resolved_at DESC
		LIMIT $3 OFFSET $4
	`, models.StatusCompleted, models.StatusCancelled, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts, err := scanAlertRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// CountActiveAlerts returns the number of alerts still live.
func (s *PostgresStore) CountActiveAlerts(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM alerts WHERE status NOT IN ($1, $2)
	`, models.StatusCompleted, models.StatusCancelled).Scan(&count)
	return count, err
}

func scanAlertRows(rows pgx.Rows) ([]models.Alert, error) {
	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		err := rows.Scan(
			&alert.ID,
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
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}
