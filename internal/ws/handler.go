package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/saxenaaman628/ranker/internal/models"
	"github.com/saxenaaman628/ranker/internal/room"
	"github.com/saxenaaman628/ranker/internal/utils"
)

// PollStore is the atomic document store the connections mutate.
type PollStore interface {
	Get(ctx context.Context, pollID string) (*models.Poll, error)
	SetParticipant(ctx context.Context, pollID, userID, name string) (*models.Poll, error)
	RemoveParticipant(ctx context.Context, pollID, userID string) (*models.Poll, error)
	AddNomination(ctx context.Context, pollID string, nominationID models.NominationID, nomination models.Nomination) (*models.Poll, error)
	RemoveNomination(ctx context.Context, pollID string, nominationID models.NominationID) (*models.Poll, error)
	Start(ctx context.Context, pollID string) (*models.Poll, error)
	SubmitRankings(ctx context.Context, pollID, userID string, rankings []models.NominationID) (*models.Poll, error)
	SetResults(ctx context.Context, pollID string, results []models.Result) (*models.Poll, error)
	Delete(ctx context.Context, pollID string) error
}

type Authenticator interface {
	Verify(token string) (models.Identity, error)
}

// Handler upgrades authenticated requests and runs one connection per socket.
type Handler struct {
	store    PollStore
	rooms    *room.Registry
	auth     Authenticator
	notify   *room.Broadcaster
	validate *validator.Validate
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// NewHandler wires the connection state machine. notify may be nil; when
// set, every successful join is published on it.
func NewHandler(store PollStore, rooms *room.Registry, auth Authenticator, notify *room.Broadcaster, log logrus.FieldLogger) *Handler {
	return &Handler{
		store:    store,
		rooms:    rooms,
		auth:     auth,
		notify:   notify,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.WithField("module", "ws"),
	}
}

// SetCheckOrigin restricts which origins may open a socket.
func (h *Handler) SetCheckOrigin(fn func(r *http.Request) bool) {
	h.upgrader.CheckOrigin = fn
}

func (h *Handler) Handle(c *gin.Context) {
	id, err := h.auth.Verify(utils.TokenFromRequest(c.Request))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	newConnection(h, conn, id, c.ClientIP()).serve(c.Request.Context())
}
