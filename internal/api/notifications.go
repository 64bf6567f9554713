package api

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/ranker/internal/room"
)

// NotificationsHandler streams join notifications as server-sent events
// until the client goes away or falls too far behind.
func NotificationsHandler(notify *room.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := notify.Subscribe()
		defer sub.Close()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Writer.WriteHeaderNow()
		c.Writer.Flush()

		done := c.Request.Context().Done()
		c.Stream(func(w io.Writer) bool {
			select {
			case msg, ok := <-sub.C():
				if !ok {
					return false
				}
				c.SSEvent("message", string(msg))
				return true
			case <-done:
				return false
			}
		})
	}
}
