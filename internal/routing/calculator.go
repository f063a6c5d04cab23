package routing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/metrics"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// Scoring constants. A selection starts at a perfect score and loses
// points for traffic delay and for long hauls.
const (
	baseScore           = 100.0
	trafficPenaltyCap   = 30.0
	trafficPenaltyRate  = 2.0 // points per delay minute
	distancePenaltyRate = 0.5 // points per km beyond the free distance
	freeDistanceKm      = 20.0
)

// Calculator selects the best route under a traffic-aware policy.
type Calculator struct {
	provider Provider
	logger   zerolog.Logger
}

// NewCalculator creates a calculator over the given provider.
func NewCalculator(provider Provider, logger zerolog.Logger) *Calculator {
	return &Calculator{provider: provider, logger: logger}
}

// Compute obtains candidates, selects the minimal adjusted duration
// (ties broken by shorter distance) and scores the selection.
//
// Provider failure degrades to a single non-traffic-aware request; if
// that also fails the error is returned and the caller keeps its prior
// route in place.
func (c *Calculator) Compute(ctx context.Context, origin, dest models.Point) (*models.Route, error) {
	start := time.Now()

	trafficAware := true
	candidates, err := c.provider.Routes(ctx, origin, dest, true)
	if err == nil && len(candidates) == 0 {
		err = ErrNoRoutes
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("traffic-aware routing failed, trying basic route")
		trafficAware = false
		candidates, err = c.provider.Routes(ctx, origin, dest, false)
		if err == nil && len(candidates) == 0 {
			err = ErrNoRoutes
		}
		if err != nil {
			metrics.RoutesComputed.WithLabelValues("failed").Inc()
			return nil, err
		}
		metrics.RoutesComputed.WithLabelValues("fallback").Inc()
	} else {
		metrics.RoutesComputed.WithLabelValues("traffic").Inc()
	}
	metrics.RouteComputeDuration.Observe(time.Since(start).Seconds())

	selected := selectCandidate(candidates)
	candidates[selected].Selected = true

	best := candidates[selected]
	now := time.Now()

	return &models.Route{
		Candidates:   candidates,
		Score:        qualityScore(best),
		ETA:          now.Add(time.Duration(best.AdjustedSeconds()) * time.Second).UnixMilli(),
		ComputedAt:   now.UnixMilli(),
		TrafficAware: trafficAware,
	}, nil
}

// selectCandidate returns the index of the candidate with minimal
// adjusted duration, ties broken by shorter distance.
func selectCandidate(candidates []models.RouteCandidate) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		ci, cb := candidates[i], candidates[best]
		if ci.AdjustedSeconds() < cb.AdjustedSeconds() {
			best = i
			continue
		}
		if ci.AdjustedSeconds() == cb.AdjustedSeconds() && ci.DistanceMeters < cb.DistanceMeters {
			best = i
		}
	}
	return best
}

// qualityScore rates a selection from 0 to 100. Traffic delay costs two
// points per minute up to a 30-point cap; distance beyond 20 km costs
// half a point per km.
func qualityScore(c models.RouteCandidate) float64 {
	score := baseScore

	if c.TrafficDurationSeconds > c.DurationSeconds {
		delayMinutes := float64(c.TrafficDurationSeconds-c.DurationSeconds) / 60.0
		penalty := delayMinutes * trafficPenaltyRate
		if penalty > trafficPenaltyCap {
			penalty = trafficPenaltyCap
		}
		score -= penalty
	}

	distanceKm := float64(c.DistanceMeters) / 1000.0
	if distanceKm > freeDistanceKm {
		score -= (distanceKm - freeDistanceKm) * distancePenaltyRate
	}

	if score < 0 {
		score = 0
	}
	return score
}
