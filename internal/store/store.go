package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// DataStore defines the interface for persistent storage of agents and
// alerts. Both PostgresStore and SQLiteStore implement this interface.
// Live room state never lives here; the registry owns it and archives
// terminal alerts through ArchiveAlert.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Agent operations
	CreateAgent(ctx context.Context, name, badge, phone string) (*models.Agent, error)
	GetAgentByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	GetAgentByBadge(ctx context.Context, badge string) (*models.Agent, error)
	UpdateAgentStatus(ctx context.Context, id uuid.UUID, status models.AgentStatus) error
	CountAgents(ctx context.Context) (int64, error)

	// Alert operations
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
	ArchiveAlert(ctx context.Context, id uuid.UUID, status models.Status, resolvedAt time.Time) error
	ListAlertHistory(ctx context.Context, limit, offset int) ([]models.Alert, int, error)
	CountActiveAlerts(ctx context.Context) (int64, error)
}
