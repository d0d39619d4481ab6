package updatechannel

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/sitemapkeeper/internal/logging"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Handler exposes a Broker over websocket. Each connection is one client.
type Handler struct {
	broker *Broker
	logger logging.Logger
	opts   *websocket.AcceptOptions
}

// NewHandler returns a websocket endpoint for b. originPatterns lists the
// extra hosts allowed to open the socket cross-origin.
func NewHandler(b *Broker, logger logging.Logger, originPatterns ...string) *Handler {
	return &Handler{
		broker: b,
		logger: logger,
		opts:   &websocket.AcceptOptions{OriginPatterns: originPatterns},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.opts)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	id, out := h.broker.Connect(ctx)
	defer h.broker.Disconnect(context.WithoutCancel(ctx), id)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			var msg Message
			if err := wsjson.Read(gctx, conn, &msg); err != nil {
				return err
			}
			h.broker.Post(gctx, id, msg)
		}
	})
	g.Go(func() error {
		for {
			select {
			case msg, ok := <-out:
				if !ok {
					return nil
				}
				if err := wsjson.Write(gctx, conn, msg); err != nil {
					return err
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	err = g.Wait()
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		h.logger.Debug(ctx, "channel connection ended", "client", id, "err", err)
	}
}

// Client is the client end of a websocket channel.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to the channel endpoint at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial update channel %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Send posts msg to the agent.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return wsjson.Write(ctx, c.conn, msg)
}

// Listen calls fn for every valid message until ctx is done or the
// connection drops. A normal closure returns nil.
func (c *Client) Listen(ctx context.Context, fn func(Message)) error {
	for {
		var msg Message
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msg.Validate() != nil {
			continue
		}
		fn(msg)
	}
}

// Close ends the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
