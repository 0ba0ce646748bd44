package chathub

import "campuschat/internal/models"

// Client is the interface for any type of connection attached to the hub.
// It abstracts the underlying transport so the hub can manage clients
// uniformly; room membership is owned by the hub's session directory, not
// by the client itself.
type Client interface {
	// GetUserID returns the transport-bound identifier assigned on connect.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound frames to.
	// It is drained by the client's write pump.
	GetSendChannel() chan<- models.Envelope

	// Run starts the client's read and write pumps.
	Run()

	// Close shuts down the client's send channel, stopping the write pump.
	// It must be safe to call more than once.
	Close()
}
