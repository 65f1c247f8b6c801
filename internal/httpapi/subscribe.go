package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"signalstore/internal/models"
	"signalstore/internal/subscription"
)

// upgrader accepts any origin, the same posture the httpapi CORS
// middleware already takes for the JSON endpoints — this front door is
// meant to be embedded behind whatever edge the host application already
// runs, not to authenticate callers itself.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribeFrame is the envelope written for every subscription update, a
// small JSON wrapper around subscription.Response[T] that also carries
// the subscription id on the first frame. There is no unsubscribe request;
// the subscription ends when the WebSocket handler returns.
type subscribeFrame[T any] struct {
	SubscriptionID string           `json:"subscription_id,omitempty"`
	Kind           string           `json:"kind"`
	Key            models.Timestamp `json:"key,omitempty"`
	View           T                `json:"view,omitempty"`
}

func responseKindName(k subscription.ResponseKind) string {
	if k == subscription.ResponseAdd {
		return "add"
	}
	return "remove"
}

func (h *handlers) subscribeSpans(c *gin.Context) {
	expr := c.Query("filter")
	bufferSize := 64

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	id, ch, err := h.engine.SubscribeSpans(ctx, expr, bufferSize)
	if err != nil {
		_ = conn.WriteJSON(mapError(err))
		return
	}
	defer h.engine.Unsubscribe(id)

	_ = conn.WriteJSON(subscribeFrame[*models.SpanView]{SubscriptionID: id.String(), Kind: "subscribed"})
	streamSpans(conn, ch)
}

func (h *handlers) subscribeEvents(c *gin.Context) {
	expr := c.Query("filter")
	bufferSize := 64

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	id, ch, err := h.engine.SubscribeEvents(ctx, expr, bufferSize)
	if err != nil {
		_ = conn.WriteJSON(mapError(err))
		return
	}
	defer h.engine.Unsubscribe(id)

	_ = conn.WriteJSON(subscribeFrame[*models.EventView]{SubscriptionID: id.String(), Kind: "subscribed"})
	streamEvents(conn, ch)
}

// streamSpans forwards subscription updates until the channel closes or
// the socket write fails (the client disconnected). It also drains
// incoming client frames on a background goroutine purely to notice a
// client-initiated close; this subscription protocol has no client->server
// messages of its own.
func streamSpans(conn *websocket.Conn, ch <-chan subscription.Response[*models.SpanView]) {
	closed := watchClientClose(conn)
	for {
		select {
		case resp, ok := <-ch:
			if !ok {
				return
			}
			frame := subscribeFrame[*models.SpanView]{Kind: responseKindName(resp.Kind), Key: resp.Key, View: resp.View}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func streamEvents(conn *websocket.Conn, ch <-chan subscription.Response[*models.EventView]) {
	closed := watchClientClose(conn)
	for {
		select {
		case resp, ok := <-ch:
			if !ok {
				return
			}
			frame := subscribeFrame[*models.EventView]{Kind: responseKindName(resp.Kind), Key: resp.Key, View: resp.View}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// watchClientClose reads (and discards) incoming frames until the
// connection errors out, the standard gorilla/websocket idiom for
// detecting a peer-initiated close on a write-only stream.
func watchClientClose(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}
