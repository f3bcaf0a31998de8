package server

import (
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/notewisp/notewisp/internal/observe"
)

// eventNoteCreated is sent to watchers when a new note has been saved.
const eventNoteCreated = "note.created"

// subscriberBuffer is the per-watcher event queue depth. A watcher that falls
// further behind than this starts losing events rather than blocking the
// upload path.
const subscriberBuffer = 16

// watchEvent is the JSON message pushed to /v1/watch subscribers.
type watchEvent struct {
	Type string       `json:"type"`
	Note noteResponse `json:"note"`
}

// watchHub fans out note events to all connected websocket watchers.
type watchHub struct {
	mu   sync.Mutex
	subs map[chan watchEvent]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[chan watchEvent]struct{})}
}

// subscribe registers a new watcher and returns its event channel plus an
// unsubscribe function.
func (h *watchHub) subscribe() (<-chan watchEvent, func()) {
	ch := make(chan watchEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// broadcast delivers ev to every subscriber without blocking. Full queues
// drop the event.
func (h *watchHub) broadcast(ev watchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// subscriberCount reports the number of connected watchers.
func (h *watchHub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// handleWatch upgrades the connection to a websocket and streams note events
// until the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	s.metrics.WatchSubscribers.Add(ctx, 1)
	defer s.metrics.WatchSubscribers.Add(ctx, -1)

	events, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	observe.Logger(ctx).Info("watcher connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case ev := <-events:
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				observe.Logger(ctx).Debug("watcher write failed, disconnecting", "error", err)
				return
			}
		}
	}
}
