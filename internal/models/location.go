package models

import "time"

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// LocationSample is a single position fix produced by a device sampler.
// Battery and ThreatLevel are auxiliary fields refreshed on cache hits.
type LocationSample struct {
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng         float64 `json:"lng" validate:"gte=-180,lte=180"`
	Accuracy    float64 `json:"accuracy,omitempty"`
	Battery     int     `json:"battery,omitempty"`
	ThreatLevel string  `json:"threat_level,omitempty"`
	Timestamp   int64   `json:"ts"`            // Unix ms
	TTLSeconds  int     `json:"ttl,omitempty"` // validity window of this fix
}

// Point returns the sample's coordinate pair.
func (s LocationSample) Point() Point {
	return Point{Lat: s.Lat, Lng: s.Lng}
}

// Expired reports whether the sample's TTL has elapsed relative to now.
func (s LocationSample) Expired(now time.Time) bool {
	if s.TTLSeconds <= 0 {
		return false
	}
	age := now.UnixMilli() - s.Timestamp
	return age > int64(s.TTLSeconds)*1000
}
