// Package ipc bridges the launcher core to out-of-process frontends over a
// loopback websocket.
package ipc

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

const clientBuffer = 64

// Bridge implements ports.Frontend by broadcasting events to every
// connected client. It also remembers which item each host id of the
// current list names, so incoming activations can be routed to that item
// wherever it sits after later rebuilds.
type Bridge struct {
	logger ports.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	// ids and keys are inverse maps over the items currently shown. An
	// item keeps its id for as long as it stays in the list.
	ids  map[domain.ItemKey]string
	keys map[string]domain.ItemKey
}

type client struct {
	send chan Event
	// gone is closed when the client is dropped for falling behind.
	gone chan struct{}
	once sync.Once
}

func (c *client) drop() {
	c.once.Do(func() { close(c.gone) })
}

// NewBridge builds a bridge with no clients.
func NewBridge(logger ports.Logger) *Bridge {
	return &Bridge{
		logger:  logger,
		clients: make(map[*client]struct{}),
		ids:     make(map[domain.ItemKey]string),
		keys:    make(map[string]domain.ItemKey),
	}
}

// InputChanged implements ports.Frontend.
func (b *Bridge) InputChanged(in domain.Input) {
	sel := in.Selection
	b.broadcast(Event{Type: EventSetInput, Text: in.Contents, Selection: &sel})
}

// ListChanged implements ports.Frontend.
func (b *Bridge) ListChanged(items []domain.ListItem, style *domain.ListStyle) {
	views := make([]ItemView, 0, len(items))
	ids := make(map[domain.ItemKey]string, len(items))
	keys := make(map[string]domain.ItemKey, len(items))

	b.mu.Lock()
	for _, it := range items {
		key := it.Key()
		id, ok := b.ids[key]
		if !ok {
			id = uuid.NewString()
		}
		ids[key] = id
		keys[id] = key
		views = append(views, ItemView{
			ID:          id,
			Plugin:      it.PluginName(),
			Title:       it.Title,
			Description: it.Description,
			Icon:        iconView(it.Icon),
		})
	}
	b.ids, b.keys = ids, keys
	b.mu.Unlock()

	zero := 0
	b.broadcast(Event{Type: EventSetList, Items: views, Style: styleView(style), Index: &zero})
}

// Error implements ports.Frontend.
func (b *Bridge) Error(title, detail string) {
	b.broadcast(Event{Type: EventError, Title: title, Detail: detail})
}

// Close implements ports.Frontend.
func (b *Bridge) Close() {
	b.broadcast(Event{Type: EventClose})
}

// Show asks frontends to present the launcher, e.g. after a second launch.
func (b *Bridge) Show() {
	b.broadcast(Event{Type: EventShow})
}

// Selection tells frontends the selected index changed.
func (b *Bridge) Selection(index int) {
	b.broadcast(Event{Type: EventSelection, Index: &index})
}

// Clients returns the number of connected clients.
func (b *Bridge) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

var errUnknownItem = errors.New("unknown list item")

// keyOf maps a host list item id to the item it names.
func (b *Bridge) keyOf(id string) (domain.ItemKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.keys[id]
	if !ok {
		return domain.ItemKey{}, errUnknownItem
	}
	return key, nil
}

func (b *Bridge) register() *client {
	c := &client{send: make(chan Event, clientBuffer), gone: make(chan struct{})}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

func (b *Bridge) unregister(c *client) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()
	c.drop()
}

// broadcast never blocks: a client whose buffer is full is dropped.
func (b *Bridge) broadcast(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- ev:
		default:
			b.logger.Warn("dropping slow frontend client", map[string]interface{}{"event": ev.Type})
			delete(b.clients, c)
			c.drop()
		}
	}
}

// sendTo queues an event for one client only.
func (b *Bridge) sendTo(ctx context.Context, c *client, ev Event) {
	select {
	case c.send <- ev:
	case <-c.gone:
	case <-ctx.Done():
	}
}

var _ ports.Frontend = (*Bridge)(nil)
