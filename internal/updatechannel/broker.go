package updatechannel

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"github.com/google/uuid"
)

// Listener observes the client population and inbound messages.
type Listener interface {
	ClientConnected(ctx context.Context, id string)
	ClientDisconnected(ctx context.Context, id string)
	HandleMessage(ctx context.Context, from string, msg Message)
}

// Broker is the agent end of the channel. Each connected client gets a
// bounded queue; Broadcast never blocks on a full one.
type Broker struct {
	logger logging.Logger
	buffer int

	mu       sync.RWMutex
	clients  map[string]chan Message
	listener Listener
}

// NewBroker returns a broker with per-client queues of buffer messages.
func NewBroker(buffer int, logger logging.Logger) *Broker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Broker{
		logger:  logger,
		buffer:  buffer,
		clients: make(map[string]chan Message),
	}
}

// SetListener installs l. It must be called before clients connect.
func (b *Broker) SetListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = l
}

func (b *Broker) getListener() Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.listener
}

// Connect registers a new client and returns its id and outbound queue.
func (b *Broker) Connect(ctx context.Context) (string, <-chan Message) {
	id := uuid.NewString()
	ch := make(chan Message, b.buffer)

	b.mu.Lock()
	b.clients[id] = ch
	b.mu.Unlock()

	b.logger.Debug(ctx, "channel client connected", "client", id)
	if l := b.getListener(); l != nil {
		l.ClientConnected(ctx, id)
	}
	return id, ch
}

// Disconnect removes a client and closes its queue. Unknown ids are ignored.
func (b *Broker) Disconnect(ctx context.Context, id string) {
	b.mu.Lock()
	ch, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
		close(ch)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	b.logger.Debug(ctx, "channel client disconnected", "client", id)
	if l := b.getListener(); l != nil {
		l.ClientDisconnected(ctx, id)
	}
}

// Broadcast queues msg for every connected client and returns how many
// queues accepted it.
func (b *Broker) Broadcast(ctx context.Context, msg Message) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for id, ch := range b.clients {
		select {
		case ch <- msg:
			delivered++
		default:
			b.logger.Warn(ctx, "channel queue full, message dropped", "client", id, "type", msg.Type)
		}
	}
	return delivered
}

// Post delivers an inbound message from client id to the listener.
// Invalid messages are logged and dropped.
func (b *Broker) Post(ctx context.Context, id string, msg Message) {
	if err := msg.Validate(); err != nil {
		b.logger.Warn(ctx, "dropping channel message", "client", id, "err", err)
		return
	}
	if l := b.getListener(); l != nil {
		l.HandleMessage(ctx, id, msg)
	}
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
