package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuvault-io/docuvault-api/internal/session"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/response"
)

// PresenceHandler reports realtime presence. It reads the session store
// directly, so the answer is global across instances rather than limited to
// the connections this process holds.
type PresenceHandler struct {
	sessions session.Store
}

// NewPresenceHandler creates a new handler.
func NewPresenceHandler(sessions session.Store) *PresenceHandler {
	return &PresenceHandler{sessions: sessions}
}

// Online godoc
// @Summary List online users
// @Description List ids of users with at least one active realtime connection
// @Tags Presence
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /presence/online [get]
func (h *PresenceHandler) Online(c *gin.Context) {
	users, err := h.sessions.OnlineUsers(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list online users"))
		return
	}
	if users == nil {
		users = []string{}
	}

	response.JSON(c, http.StatusOK, gin.H{"user_ids": users, "count": len(users)}, nil)
}
