package api

import (
	"encoding/json"
	"log"

	"github.com/aniplay/aniplay/internal/event"
	"github.com/gin-gonic/gin"
)

// SSEHandler streams sync lifecycle events to the front end.
func (h *Handlers) SSEHandler(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientChan := make(chan event.Event, 10)

	// Bridge the callback bus into a channel. Non-blocking send so a slow
	// client can't back up the bus.
	bridgeHandler := func(e event.Event) {
		select {
		case clientChan <- e:
		default:
		}
	}

	topics := []event.EventType{
		event.EventSyncStarted,
		event.EventSyncProgress,
		event.EventSyncComplete,
		event.EventLibraryChanged,
	}

	subIDs := make(map[event.EventType]string)
	for _, t := range topics {
		subIDs[t] = h.svc.Bus.Subscribe(t, bridgeHandler)
	}
	defer func() {
		for t, id := range subIDs {
			h.svc.Bus.Unsubscribe(t, id)
		}
		log.Println("SSE client disconnected")
	}()

	c.SSEvent("message", "connected")
	c.Writer.Flush()

	for {
		select {
		case evt := <-clientChan:
			data, err := json.Marshal(evt.Payload)
			if err != nil {
				log.Printf("SSE marshal error: %v", err)
				continue
			}
			c.SSEvent(string(evt.Type), string(data))
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
