// Package sse implements a Server-Sent Events broker that tells browsers
// about catalog changes and applied tag operations.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// historySize is how many recent messages are kept for clients that
// reconnect with Last-Event-ID.
const historySize = 128

type subscribeReq struct {
	ch    chan []byte
	after uint64
}

type sent struct {
	id  uint64
	raw []byte
}

type folderEventReq struct {
	kind string
	path string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the mutable state (clients and the
// tags.updated throttle timestamp). Public methods talk to it over channels.
type Broker struct {
	tagsMin time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	folderEventCh chan folderEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. tagsThrottle bounds how often
// tags.updated is sent while folder events stream in.
func NewBroker(tagsThrottle time.Duration) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = 2 * time.Second
	}

	b := &Broker{
		tagsMin:       tagsThrottle,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		folderEventCh: make(chan folderEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastTags time.Time
	var seq uint64
	history := make([]sent, 0, historySize)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)
		if len(history) == historySize {
			history = append(history[:0], history[1:]...)
		}
		history = append(history, sent{id: seq, raw: raw})

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.ch] = struct{}{}
			if req.after == 0 {
				continue
			}
			for _, m := range history {
				if m.id <= req.after {
					continue
				}
				select {
				case req.ch <- m.raw:
				default:
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.folderEventCh:
			switch req.kind {
			case "created", "updated", "deleted":
				broadcast(Event{Type: "folder." + req.kind, Data: map[string]string{"path": req.path}})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastTags) >= b.tagsMin {
				lastTags = now
				broadcast(Event{Type: "tags.updated", Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(0)
}

// SubscribeFrom adds a new client that first receives the retained
// messages with an id greater than lastID. Zero replays nothing.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, after: lastID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishFolderEvent publishes a folder document change and a throttled
// tags.updated event. kind is created, updated or deleted.
func (b *Broker) PublishFolderEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.folderEventCh <- folderEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A reconnecting
// client's Last-Event-ID header replays what it missed.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	ch := b.SubscribeFrom(lastID)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
