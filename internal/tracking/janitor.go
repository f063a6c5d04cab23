package tracking

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/metrics"
)

// Janitor periodically sweeps idle rooms and refreshes gauge metrics.
type Janitor struct {
	cron     *cron.Cron
	registry *Registry
	logger   zerolog.Logger
}

// NewJanitor creates a janitor over the registry.
func NewJanitor(registry *Registry, logger zerolog.Logger) *Janitor {
	return &Janitor{
		cron:     cron.New(),
		registry: registry,
		logger:   logger.With().Str("component", "janitor").Logger(),
	}
}

// Start schedules the sweep. Errors here are configuration bugs.
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc("@every 1m", func() {
		j.registry.Sweep()
		metrics.ActiveRooms.Set(float64(j.registry.ActiveRooms()))
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info().Msg("janitor started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
