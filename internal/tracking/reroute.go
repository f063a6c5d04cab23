package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

// startRerouterLocked launches the per-room route scheduler. The room
// owns the timer; it is cancelled on teardown, not tied to any client's
// lifecycle. Caller holds sess.mu.
func (r *Registry) startRerouterLocked(sess *Session) {
	if sess.cancelReroute != nil || r.calc == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess.cancelReroute = cancel
	go r.rerouteLoop(ctx, sess)
}

// rerouteLoop recomputes the route immediately on assignment and then
// on a fixed interval until the room is torn down.
func (r *Registry) rerouteLoop(ctx context.Context, sess *Session) {
	r.recompute(ctx, sess)

	ticker := time.NewTicker(r.tuning.RerouteInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.recompute(ctx, sess)
		}
	}
}

// recompute runs one ETA computation for a room. It needs a responder
// origin; the destination is the victim's latest fix, falling back to
// the alert's reported location. A failed computation leaves the prior
// route and ETA in place.
func (r *Registry) recompute(ctx context.Context, sess *Session) {
	sess.mu.Lock()
	alertID := sess.alert.ID.String()
	var origin *models.Point
	if sess.agentLoc != nil {
		p := sess.agentLoc.Point()
		origin = &p
	}
	dest := sess.alert.Location()
	if sess.victimLoc != nil {
		dest = sess.victimLoc.Point()
	}
	sess.mu.Unlock()

	if origin == nil {
		return
	}

	route, err := r.calc.Compute(ctx, *origin, dest)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Warn().Err(err).Str("alert_id", alertID).Msg("route computation failed, keeping prior route")
		}
		return
	}

	if err := r.Publish(ctx, models.NewRouteUpdate(alertID, *route)); err != nil && !errors.Is(err, ErrRoomNotFound) {
		r.logger.Warn().Err(err).Str("alert_id", alertID).Msg("route publish failed")
	}
}
