package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/store"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/tracking"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db       store.DataStore
	redis    *store.RedisStore
	registry *tracking.Registry
	logger   zerolog.Logger
}

// NewHandler creates a new Handler with the given stores and registry.
func NewHandler(db store.DataStore, redis *store.RedisStore, registry *tracking.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		db:       db,
		redis:    redis,
		registry: registry,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeText trims and limits free text, removing control characters.
func sanitizeText(text string, max int) string {
	text = strings.TrimSpace(text)

	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	if len(text) > max {
		// Back off to a rune boundary so the cut never leaves a
		// broken UTF-8 sequence behind.
		cut := max
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	return text
}
