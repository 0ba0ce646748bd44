package chathub

import "campuschat/internal/models"

// Registry holds the live transport handle for every connected user. It is
// the only part of the hub with an I/O side effect (handing frames to a
// client's write pump). Not safe for concurrent use on its own; the hub's
// mutex guards every call.
type Registry struct {
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Add(c Client) {
	r.clients[c.GetUserID()] = c
}

// Remove closes the client's send channel and drops the entry. No-op for an
// unknown user, so teardown can run twice.
func (r *Registry) Remove(userID string) {
	c, ok := r.clients[userID]
	if !ok {
		return
	}
	delete(r.clients, userID)
	c.Close()
}

// Send hands a frame to the user's write pump. A frame for a missing user
// or a full send buffer is silently dropped; the next inbound event from
// that user (or its absence) drives cleanup.
func (r *Registry) Send(userID string, env models.Envelope) {
	c, ok := r.clients[userID]
	if !ok {
		return
	}
	select {
	case c.GetSendChannel() <- env:
	default:
	}
}

// Broadcast sends a frame to every connected user, dropping per-user on a
// full buffer like Send.
func (r *Registry) Broadcast(env models.Envelope) {
	for _, c := range r.clients {
		select {
		case c.GetSendChannel() <- env:
		default:
		}
	}
}

func (r *Registry) Count() int {
	return len(r.clients)
}

func (r *Registry) Contains(userID string) bool {
	_, ok := r.clients[userID]
	return ok
}
