package handler

import (
	"github.com/rs/zerolog"

	"campuschat/internal/chathub"
)

// Handler wires HTTP routes to the chat hub.
type Handler struct {
	Hub *chathub.Hub
	Log zerolog.Logger

	// STUNServer is advertised to clients via the config endpoint.
	STUNServer string
}

func NewHandler(hub *chathub.Hub, log zerolog.Logger) *Handler {
	return &Handler{Hub: hub, Log: log}
}
