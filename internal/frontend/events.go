package frontend

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/labstack/echo/v4"
)

const (
	galleryEventName     = "gallery"
	sseHeartbeatInterval = 25 * time.Second
)

// EventHub fans store changes out to connected browsers.
type EventHub struct {
	mu          sync.Mutex
	clients     map[chan int]struct{}
	unsubscribe func()
	closed      bool
}

// NewEventHub subscribes to store. Close must be called to unsubscribe.
func NewEventHub(store *gallery.Store) *EventHub {
	hub := &EventHub{clients: make(map[chan int]struct{})}
	hub.unsubscribe = store.Subscribe(hub.broadcast)
	return hub
}

// broadcast runs inside the store's notification and must never block.
func (hub *EventHub) broadcast(images []gallery.ImageRecord) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for client := range hub.clients {
		select {
		case client <- len(images):
		default:
			// a pending event already makes the client refresh
		}
	}
}

func (hub *EventHub) register() (chan int, bool) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		return nil, false
	}
	client := make(chan int, 1)
	hub.clients[client] = struct{}{}
	return client, true
}

func (hub *EventHub) unregister(client chan int) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.clients[client]; ok {
		delete(hub.clients, client)
		close(client)
	}
}

// Clients returns the number of connected streams.
func (hub *EventHub) Clients() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

// Close unsubscribes from the store and ends every stream.
func (hub *EventHub) Close() {
	hub.unsubscribe()

	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.closed = true
	for client := range hub.clients {
		delete(hub.clients, client)
		close(client)
	}
}

func (hub *EventHub) handler(ctx echo.Context) error {
	client, ok := hub.register()
	if !ok {
		return ctx.String(http.StatusServiceUnavailable, "Event stream closed")
	}
	defer hub.unregister(client)

	w := ctx.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case count, open := <-client:
			if !open {
				return nil
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %d\n\n", galleryEventName, count); err != nil {
				slog.Debug("event stream write failed", "error", err)
				return nil
			}
			w.Flush()
		}
	}
}
