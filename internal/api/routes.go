package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/ranker/internal/controller"
	"github.com/saxenaaman628/ranker/internal/room"
	"github.com/saxenaaman628/ranker/internal/ws"
)

type Deps struct {
	Polls        *controller.PollController
	Sockets      *ws.Handler
	Auth         Verifier
	Notify       *room.Broadcaster
	ClientOrigin string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(CORS(d.ClientOrigin))

	r.GET("/polls", d.Sockets.Handle)

	api := r.Group("/api")
	{
		api.POST("/polls", d.Polls.CreatePollHandler)
		api.POST("/polls/join", d.Polls.JoinPollHandler)
		api.GET("/notifications", NotificationsHandler(d.Notify))
	}

	auth := r.Group("/api")
	auth.Use(JWTAuthMiddleware(d.Auth))
	{
		auth.POST("/polls/rejoin", d.Polls.RejoinPollHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}
