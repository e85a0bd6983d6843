// Package livereload pushes reload notifications to open browser tabs over
// server-sent events.
package livereload

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

const (
	EventUpdate     = "update"
	EventBuildError = "build-error"
)

// Event is one server-sent event. Data is already encoded as a JSON value.
type Event struct {
	Name string
	Data string
}

func (e Event) String() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Name, e.Data)
}

type client struct {
	location string
	events   chan Event
}

// Hub tracks connected tabs and the page each one is showing.
type Hub struct {
	mu      sync.Mutex
	clients map[xid.ID]*client
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[xid.ID]*client), log: log}
}

// Location maps a request pathname to a page name: "/" is index, anything
// else loses its leading slash.
func Location(pathname string) string {
	loc := strings.Trim(pathname, "/")
	if loc == "" {
		return "index"
	}
	return loc
}

// Subscribe registers a client showing location. Events are delivered on the
// returned channel until Unsubscribe.
func (h *Hub) Subscribe(location string) (xid.ID, <-chan Event) {
	id := xid.New()
	c := &client{location: location, events: make(chan Event, 4)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.log.Debug().Str("client", id.String()).Str("location", location).Msg("[watch] client connected")
	return id, c.events
}

func (h *Hub) Unsubscribe(id xid.ID) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
	h.log.Debug().Str("client", id.String()).Msg("[watch] client disconnected")
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify tells clients on location to reload. An empty location reaches
// every client.
func (h *Hub) Notify(location string) {
	h.broadcast(location, Event{Name: EventUpdate, Data: `""`})
}

// NotifyError reports a failed rebuild to clients on location.
func (h *Hub) NotifyError(location string, err error) {
	data, _ := json.Marshal(err.Error())
	h.broadcast(location, Event{Name: EventBuildError, Data: string(data)})
}

func (h *Hub) broadcast(location string, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if location != "" && c.location != location {
			continue
		}
		// A tab with a full queue already has a reload pending.
		select {
		case c.events <- e:
		default:
		}
	}
}

// ServeHTTP streams events to one client until it disconnects. The page is
// taken from the location query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := h.Subscribe(Location(r.URL.Query().Get("location")))
	defer h.Unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if _, err := fmt.Fprint(w, e.String()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
