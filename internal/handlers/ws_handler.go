package handlers

import (
	"net/http"

	"github.com/anonto42/letterly/backend/internal/middleware"
	"github.com/anonto42/letterly/backend/internal/realtime"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

// WSHandler upgrades /ws connections onto the realtime hub.
type WSHandler struct {
	hub    *realtime.Hub
	tokens middleware.TokenParser
}

func NewWSHandler(hub *realtime.Hub, tokens middleware.TokenParser) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens}
}

// Connect authenticates the optional ?token= and hands the socket to the hub.
// Sockets without a token may only join letter channels.
func (h *WSHandler) Connect(c echo.Context) error {
	var userID uint
	if token := c.QueryParam("token"); token != "" {
		claims, err := h.tokens.Parse(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired token")
		}
		userID = claims.UserID
	}

	if err := h.hub.ServeWS(c.Response(), c.Request(), userID); err != nil {
		logger.Debug().Err(err).Msg("websocket upgrade failed")
	}
	return nil
}
