package models

// NominationID identifies a nomination inside one poll.
type NominationID = string

type Nomination struct {
	SubmittedBy string `json:"userId"`
	Text        string `json:"text"`
}

// Result is one row of a closed poll's ordered results.
type Result struct {
	NominationID   NominationID `json:"nominationId"`
	NominationText string       `json:"nominationText"`
	Score          float64      `json:"score"`
}

// Poll is the persisted document, one per poll id. HasStarted false is the
// nomination phase, true the voting phase.
type Poll struct {
	ID            string                      `json:"id"`
	Topic         string                      `json:"topic"`
	VotesPerVoter int                         `json:"votesPerVoter"`
	Participants  map[string]string           `json:"participants"`
	AdminID       string                      `json:"adminId"`
	Nominations   map[NominationID]Nomination `json:"nominations"`
	Rankings      map[string][]NominationID   `json:"rankings"`
	Results       []Result                    `json:"results"`
	HasStarted    bool                        `json:"hasStarted"`
}

// NewPoll returns an empty poll. Collections are non-nil so they encode as
// {} and [] and can be addressed by path in the store.
func NewPoll(id, topic string, votesPerVoter int, adminID string) *Poll {
	return &Poll{
		ID:            id,
		Topic:         topic,
		VotesPerVoter: votesPerVoter,
		Participants:  map[string]string{},
		AdminID:       adminID,
		Nominations:   map[NominationID]Nomination{},
		Rankings:      map[string][]NominationID{},
		Results:       []Result{},
	}
}

func (p *Poll) IsAdmin(userID string) bool {
	return p.AdminID == userID
}
