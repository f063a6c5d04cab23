package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/tracking"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Devices and dashboards connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades subscriber connections. Client identity and role
// arrive as query parameters; an absent identity gets a fresh one so
// observers can connect anonymously.
func Handler(registry *tracking.Registry, sendBuffer int, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("client_id")
		if clientID == "" {
			clientID = uuid.New().String()
		}
		role := models.Role(r.URL.Query().Get("role"))
		switch role {
		case models.RoleVictim, models.RoleResponder, models.RoleObserver, models.RoleDispatcher:
		default:
			role = models.RoleObserver
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := newClient(clientID, role, conn, registry, sendBuffer, logger)
		logger.Info().
			Str("client_id", clientID).
			Str("role", string(role)).
			Msg("subscriber connected")

		go client.writePump()
		go client.readPump()
	}
}
