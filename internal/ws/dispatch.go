package ws

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/saxenaaman628/ranker/internal/controller"
	"github.com/saxenaaman628/ranker/internal/models"
	"github.com/saxenaaman628/ranker/internal/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// dispatch applies one inbound event. Successful mutations are broadcast to
// the whole room in commit order; the returned error goes back to the
// sender only.
func (c *connection) dispatch(ctx context.Context, ev models.Event) error {
	if !ev.Kind.Inbound() {
		return models.ErrUnsupportedEvent
	}
	pollID := c.identity.PollID

	switch ev.Kind {
	case models.EventRemoveParticipant:
		return c.commit(func() (*models.Poll, error) {
			return c.h.store.RemoveParticipant(ctx, pollID, ev.UserID)
		})

	case models.EventNomination:
		return c.nominate(ctx, ev.Nomination.Text)

	case models.EventRemoveNomination:
		return c.commit(func() (*models.Poll, error) {
			c.room.RemoveNomination(ev.NominationID)
			return c.h.store.RemoveNomination(ctx, pollID, ev.NominationID)
		})

	case models.EventStartVote:
		return c.commit(func() (*models.Poll, error) {
			poll, err := c.loadAsAdmin(ctx)
			if err != nil {
				return nil, err
			}
			if len(poll.Nominations) == 0 {
				return nil, models.ErrNoNomination
			}
			return c.h.store.Start(ctx, pollID)
		})

	case models.EventSubmitRankings:
		if err := c.validateRankings(ev.Rankings); err != nil {
			return err
		}
		if !c.room.HasNominations(ev.Rankings) {
			return models.ErrUnknownNomination
		}
		return c.commit(func() (*models.Poll, error) {
			return c.h.store.SubmitRankings(ctx, pollID, c.identity.UserID, ev.Rankings)
		})

	case models.EventClosePoll:
		return c.commit(func() (*models.Poll, error) {
			poll, err := c.loadAsAdmin(ctx)
			if err != nil {
				return nil, err
			}
			return c.h.store.SetResults(ctx, pollID, controller.Score(poll))
		})

	case models.EventCancelPoll:
		return c.commit(func() (*models.Poll, error) {
			if _, err := c.loadAsAdmin(ctx); err != nil {
				return nil, err
			}
			if err := c.h.store.Delete(ctx, pollID); err != nil {
				return nil, err
			}
			c.h.rooms.Teardown(c.room.ID(), models.PollCancelled().Encode())
			c.log.Info("poll cancelled")
			return nil, nil
		})
	}

	return models.ErrUnsupportedEvent
}

func (c *connection) nominate(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if err := c.h.validate.Var(text, "min=1,max=100"); err != nil {
		return &models.ValidationError{Field: "nomination", Reason: "text must be 1 to 100 characters"}
	}

	id, err := utils.CreateNominationID()
	if err != nil {
		return err
	}

	return c.commit(func() (*models.Poll, error) {
		c.room.AddNomination(id)
		poll, err := c.h.store.AddNomination(ctx, c.identity.PollID, id, models.Nomination{
			SubmittedBy: c.identity.UserID,
			Text:        text,
		})
		if err != nil {
			c.room.RemoveNomination(id)
		}
		return poll, err
	})
}

func (c *connection) loadAsAdmin(ctx context.Context) (*models.Poll, error) {
	poll, err := c.h.store.Get(ctx, c.identity.PollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsAdmin(c.identity.UserID) {
		return nil, models.ErrAdminPrivilegesRequired
	}
	return poll, nil
}

// validateRankings requires 1..votes-per-voter distinct ids.
func (c *connection) validateRankings(rankings []models.NominationID) error {
	rule := fmt.Sprintf("min=1,max=%d,unique", c.room.VotesPerVoter())
	if err := c.h.validate.Var(rankings, rule); err != nil {
		return &models.ValidationError{
			Field:  "rankings",
			Reason: fmt.Sprintf("expected 1 to %d distinct nominations", c.room.VotesPerVoter()),
		}
	}
	return nil
}

func (c *connection) commit(mutate func() (*models.Poll, error)) error {
	_, err := c.room.Commit(mutate)
	return err
}
