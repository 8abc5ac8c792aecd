package services

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	LiveSessionStarted   = "session.started"
	LiveSessionCompleted = "session.completed"
	LiveSetCompleted     = "set.completed"
	LiveAchievement      = "achievement.unlocked"
)

type LiveEvent struct {
	Type   string      `json:"type"`
	UserID string      `json:"-"`
	Data   interface{} `json:"data"`
	At     time.Time   `json:"at"`
}

// LiveConn is the write side of a client connection; *websocket.Conn satisfies it.
type LiveConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// LiveHub fans events out to the connections of the user they belong to.
// Only Run writes to connections.
type LiveHub struct {
	mu      sync.RWMutex
	clients map[string]map[LiveConn]struct{}
	ch      chan LiveEvent
}

func NewLiveHub() *LiveHub {
	return &LiveHub{
		clients: map[string]map[LiveConn]struct{}{},
		ch:      make(chan LiveEvent, 64),
	}
}

func (h *LiveHub) Run(ctx context.Context) {
	for {
		select {
		case ev := <-h.ch:
			h.deliver(ev)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *LiveHub) deliver(ev LiveEvent) {
	h.mu.RLock()
	conns := make([]LiveConn, 0, len(h.clients[ev.UserID]))
	for conn := range h.clients[ev.UserID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			log.Debugf("live: dropping connection of %s: %s", ev.UserID, err)
			h.Remove(ev.UserID, conn)
			_ = conn.Close()
		}
	}
}

// Publish queues an event and drops it when the hub is saturated.
func (h *LiveHub) Publish(userID, eventType string, data interface{}) {
	if h == nil {
		return
	}
	ev := LiveEvent{Type: eventType, UserID: userID, Data: data, At: time.Now().UTC()}
	select {
	case h.ch <- ev:
	default:
		log.Warnf("live: hub saturated, dropping %s for %s", eventType, userID)
	}
}

func (h *LiveHub) Add(userID string, conn LiveConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[LiveConn]struct{}{}
	}
	h.clients[userID][conn] = struct{}{}
}

func (h *LiveHub) Remove(userID string, conn LiveConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[userID], conn)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *LiveHub) ConnectionCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}

func (h *LiveHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.clients {
		for conn := range conns {
			_ = conn.Close()
		}
		delete(h.clients, userID)
	}
}
