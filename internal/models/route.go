package models

// RouteCandidate is one alternative returned by the directions provider.
type RouteCandidate struct {
	Summary                string `json:"summary,omitempty"`
	DistanceMeters         int    `json:"distance_meters"`
	DurationSeconds        int    `json:"duration_seconds"`
	TrafficDurationSeconds int    `json:"traffic_duration_seconds,omitempty"`
	Selected               bool   `json:"selected"`
}

// AdjustedSeconds is the traffic-corrected duration, falling back to the
// base duration when no traffic figure is available.
func (c RouteCandidate) AdjustedSeconds() int {
	if c.TrafficDurationSeconds > 0 {
		return c.TrafficDurationSeconds
	}
	return c.DurationSeconds
}

// Route is the outcome of one ETA computation. Exactly one candidate
// carries the Selected mark.
type Route struct {
	Candidates   []RouteCandidate `json:"candidates"`
	Score        float64          `json:"score"`
	ETA          int64            `json:"eta"`         // Unix ms
	ComputedAt   int64            `json:"computed_at"` // Unix ms
	TrafficAware bool             `json:"traffic_aware"`
}

// Selected returns the selected candidate, or nil for an empty route.
func (r *Route) Selected() *RouteCandidate {
	for i := range r.Candidates {
		if r.Candidates[i].Selected {
			return &r.Candidates[i]
		}
	}
	return nil
}
