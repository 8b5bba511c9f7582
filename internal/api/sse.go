package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pokerjest/animeAggregator/internal/event"
)

const sseBuffer = 16

var streamedTopics = []event.EventType{
	event.EventAnimeCached,
	event.EventAnimeTranslated,
	event.EventTrendingRefreshed,
}

// WithEvents enables GET /api/events, a Server-Sent Events stream of bus
// events. Must be called before InitRoutes.
func (h *Handler) WithEvents(bus event.Bus) *Handler {
	h.events = bus
	return h
}

// Events streams store and translation events until the client disconnects.
// Slow clients lose events rather than stall the bus.
func (h *Handler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientChan := make(chan event.Event, sseBuffer)
	forward := func(e event.Event) {
		select {
		case clientChan <- e:
		default:
		}
	}

	subIDs := make(map[event.EventType]string, len(streamedTopics))
	for _, t := range streamedTopics {
		subIDs[t] = h.events.Subscribe(t, forward)
	}
	defer func() {
		for t, id := range subIDs {
			h.events.Unsubscribe(t, id)
		}
		log.Debug().Str("remote", c.ClientIP()).Msg("event stream closed")
	}()

	c.SSEvent("message", "connected")
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case evt := <-clientChan:
			c.SSEvent(string(evt.Type), evt.Payload)
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
