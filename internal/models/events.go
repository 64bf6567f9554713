package models

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventKind is the on-wire tag of an Event.
type EventKind string

const (
	// server -> client
	EventException     EventKind = "exception"
	EventPollUpdated   EventKind = "poll_updated"
	EventPollCancelled EventKind = "poll_cancelled"

	// client -> server
	EventRemoveParticipant EventKind = "remove_participant"
	EventNomination        EventKind = "nomination"
	EventRemoveNomination  EventKind = "remove_nomination"
	EventStartVote         EventKind = "start_vote"
	EventSubmitRankings    EventKind = "submit_rankings"
	EventClosePoll         EventKind = "close_poll"
	EventCancelPoll        EventKind = "cancel_poll"
)

// Inbound reports whether clients may send events of this kind.
func (k EventKind) Inbound() bool {
	switch k {
	case EventRemoveParticipant, EventNomination, EventRemoveNomination,
		EventStartVote, EventSubmitRankings, EventClosePoll, EventCancelPoll:
		return true
	}
	return false
}

func (k EventKind) hasPayload() bool {
	switch k {
	case EventStartVote, EventClosePoll, EventCancelPoll, EventPollCancelled:
		return false
	}
	return true
}

type AddNomination struct {
	Text string `json:"text"`
}

// Event is one websocket message. Only the field matching Kind is meaningful.
// Payload-less kinds encode as the bare tag string, the others as {tag: payload}.
type Event struct {
	Kind EventKind

	Message      string         // exception
	Poll         *Poll          // poll_updated
	UserID       string         // remove_participant
	Nomination   AddNomination  // nomination
	NominationID NominationID   // remove_nomination
	Rankings     []NominationID // submit_rankings
}

func PollUpdated(p *Poll) Event { return Event{Kind: EventPollUpdated, Poll: p} }

func PollCancelled() Event { return Event{Kind: EventPollCancelled} }

func Exception(err error) Event { return Event{Kind: EventException, Message: err.Error()} }

func (e Event) payload() interface{} {
	switch e.Kind {
	case EventException:
		return e.Message
	case EventPollUpdated:
		return e.Poll
	case EventRemoveParticipant:
		return e.UserID
	case EventNomination:
		return e.Nomination
	case EventRemoveNomination:
		return e.NominationID
	case EventSubmitRankings:
		return e.Rankings
	}
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	if !e.Kind.hasPayload() {
		return json.Marshal(string(e.Kind))
	}
	return json.Marshal(map[string]interface{}{string(e.Kind): e.payload()})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return ErrUnsupportedEvent
		}
		kind := EventKind(tag)
		switch kind {
		case EventStartVote, EventClosePoll, EventCancelPoll, EventPollCancelled:
			*e = Event{Kind: kind}
			return nil
		}
		return ErrUnsupportedEvent
	}

	var obj map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || len(obj) != 1 {
		return ErrUnsupportedEvent
	}

	var (
		ev  Event
		err error
	)
	for tag, raw := range obj {
		ev.Kind = EventKind(tag)
		switch ev.Kind {
		case EventException:
			err = json.Unmarshal(raw, &ev.Message)
		case EventPollUpdated:
			err = json.Unmarshal(raw, &ev.Poll)
		case EventRemoveParticipant:
			err = json.Unmarshal(raw, &ev.UserID)
		case EventNomination:
			err = json.Unmarshal(raw, &ev.Nomination)
		case EventRemoveNomination:
			err = json.Unmarshal(raw, &ev.NominationID)
		case EventSubmitRankings:
			err = json.Unmarshal(raw, &ev.Rankings)
		default:
			return ErrUnsupportedEvent
		}
	}
	if err != nil {
		return ErrUnsupportedEvent
	}
	*e = ev
	return nil
}

// Encode renders the event for the wire.
func (e Event) Encode() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Exception(err))
	}
	return b
}

// DecodeEvent parses one inbound websocket message.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, ErrUnsupportedEvent
	}
	return ev, nil
}
