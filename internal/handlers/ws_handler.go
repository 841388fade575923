package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/models"
	"idleduelist/internal/service"
)

const (
	spectatePollInterval = 500 * time.Millisecond
	spectateWriteWait    = 10 * time.Second
	spectatePingPeriod   = 30 * time.Second
)

// WSHandler diffuse les états de combat aux spectateurs WebSocket.
// Pas de pub/sub : chaque connexion polle le store versionné et ne
// pousse que lorsque la version change.
type WSHandler struct {
	upgrader websocket.Upgrader
	combats  service.CombatServiceInterface
}

// NewWSHandler crée un nouveau handler WebSocket
func NewWSHandler(combats service.CombatServiceInterface, allowedOrigins []string) *WSHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
		combats: combats,
	}
}

// Spectate suit un combat et pousse chaque nouvel état jusqu'à sa fin
func (h *WSHandler) Spectate(c *gin.Context) {
	combatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorEnvelope{
			Error: models.ErrorBody{Type: "ValidationError", Message: "invalid combat id"},
		})
		return
	}

	// l'existence se vérifie avant l'upgrade : un 404 HTTP vaut mieux
	// qu'une connexion fermée aussitôt ouverte
	state, err := h.combats.Snapshot(c.Request.Context(), combatID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	log := logrus.WithFields(logrus.Fields{
		"combat_id": combatID,
		"client_ip": c.ClientIP(),
	})
	log.Info("Spectator connected")

	// draine les messages entrants ; les spectateurs n'envoient rien
	// d'utile mais les pongs et la détection de fermeture passent par là
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !h.push(conn, state) {
		return
	}
	lastVersion := state.Version

	poll := time.NewTicker(spectatePollInterval)
	defer poll.Stop()
	ping := time.NewTicker(spectatePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			log.Info("Spectator disconnected")
			return
		case <-ping.C:
			deadline := time.Now().Add(spectateWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-poll.C:
			state, err := h.combats.Snapshot(c.Request.Context(), combatID)
			if err != nil {
				// expiré du store : le combat est terminé depuis longtemps
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "combat expired"),
					time.Now().Add(spectateWriteWait))
				return
			}
			if state.Version == lastVersion {
				continue
			}
			lastVersion = state.Version
			if !h.push(conn, state) {
				return
			}
			if state.IsTerminal() {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "combat over"),
					time.Now().Add(spectateWriteWait))
				log.Info("Spectated combat finished")
				return
			}
		}
	}
}

func (h *WSHandler) push(conn *websocket.Conn, state *models.CombatState) bool {
	conn.SetWriteDeadline(time.Now().Add(spectateWriteWait))
	if err := conn.WriteJSON(models.ViewOf(state)); err != nil {
		logrus.WithError(err).Debug("Failed to push combat state to spectator")
		return false
	}
	return true
}
