package controller

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/saxenaaman628/ranker/internal/models"
	"github.com/saxenaaman628/ranker/internal/utils"
)

// IdentityKey is the gin context key the auth middleware stores the caller under.
const IdentityKey = "identity"

const createAttempts = 3

type PollStore interface {
	Create(ctx context.Context, ttl time.Duration, pollID, topic string, votesPerVoter int, adminID string) (*models.Poll, error)
	Get(ctx context.Context, pollID string) (*models.Poll, error)
	SetParticipant(ctx context.Context, pollID, userID, name string) (*models.Poll, error)
}

type TokenIssuer interface {
	GenerateToken(id models.Identity) (string, error)
}

// PollController serves the plain HTTP side of a poll: create, join, rejoin.
type PollController struct {
	store  PollStore
	tokens TokenIssuer
	ttl    time.Duration
	log    *logrus.Entry
}

func NewPollController(store PollStore, tokens TokenIssuer, ttl time.Duration, log logrus.FieldLogger) *PollController {
	return &PollController{store: store, tokens: tokens, ttl: ttl, log: log.WithField("module", "controller")}
}

type createPollInput struct {
	Topic         string `json:"topic" binding:"required,min=1,max=100"`
	VotesPerVoter int    `json:"votesPerVoter" binding:"required,min=1,max=5"`
	Name          string `json:"name" binding:"required,min=1,max=25"`
}

type joinPollInput struct {
	PollID string `json:"pollID" binding:"required,len=6"`
	Name   string `json:"name" binding:"required,min=1,max=25"`
}

func (pc *PollController) CreatePollHandler(c *gin.Context) {
	var in createPollInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	topic, name := strings.TrimSpace(in.Topic), strings.TrimSpace(in.Name)
	if topic == "" || name == "" {
		pc.fail(c, &models.ValidationError{Field: "poll", Reason: "topic and name must not be blank"})
		return
	}

	ctx := c.Request.Context()
	adminID := utils.CreateUserID()

	var (
		poll *models.Poll
		err  error
	)
	// poll ids are short, so collisions are retried
	for i := 0; i < createAttempts; i++ {
		var pollID string
		if pollID, err = utils.CreatePollID(); err != nil {
			break
		}
		poll, err = pc.store.Create(ctx, pc.ttl, pollID, topic, in.VotesPerVoter, adminID)
		if !errors.Is(err, models.ErrPollAlreadyExists) {
			break
		}
	}
	if err != nil {
		pc.fail(c, err)
		return
	}

	if poll, err = pc.store.SetParticipant(ctx, poll.ID, adminID, name); err != nil {
		pc.fail(c, err)
		return
	}

	pc.respond(c, poll, models.Identity{UserID: adminID, PollID: poll.ID, Name: name})
	pc.log.WithFields(logrus.Fields{"poll_id": poll.ID, "user_id": adminID}).Info("poll created")
}

// JoinPollHandler issues a participant token for an existing poll. The
// participant is recorded when the websocket connects.
func (pc *PollController) JoinPollHandler(c *gin.Context) {
	var in joinPollInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		pc.fail(c, &models.ValidationError{Field: "name", Reason: "must not be blank"})
		return
	}

	poll, err := pc.store.Get(c.Request.Context(), strings.ToUpper(in.PollID))
	if err != nil {
		pc.fail(c, err)
		return
	}

	pc.respond(c, poll, models.Identity{UserID: utils.CreateUserID(), PollID: poll.ID, Name: name})
}

func (pc *PollController) RejoinPollHandler(c *gin.Context) {
	v, ok := c.Get(IdentityKey)
	id, _ := v.(models.Identity)
	if !ok || id.UserID == "" {
		pc.fail(c, models.ErrMissingCredentials)
		return
	}

	poll, err := pc.store.Get(c.Request.Context(), id.PollID)
	if err != nil {
		pc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (pc *PollController) respond(c *gin.Context, poll *models.Poll, id models.Identity) {
	token, err := pc.tokens.GenerateToken(id)
	if err != nil {
		pc.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll": poll, "accessToken": token})
}

func (pc *PollController) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		pc.log.WithError(err).Error("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrPollNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPollAlreadyExists),
		errors.Is(err, models.ErrPollHasStarted),
		errors.Is(err, models.ErrPollNoStart):
		return http.StatusConflict
	case errors.Is(err, models.ErrMissingCredentials),
		errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrAdminPrivilegesRequired):
		return http.StatusForbidden
	case models.IsValidationError(err),
		errors.Is(err, models.ErrNoNomination),
		errors.Is(err, models.ErrUnknownNomination):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
