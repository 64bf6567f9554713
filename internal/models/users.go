package models

// Identity is what the authenticator resolves a credential to.
type Identity struct {
	UserID string `json:"userId"`
	PollID string `json:"pollId"`
	Name   string `json:"name"`
}

// Notification is published on the notification stream.
type Notification struct {
	NotifyType string `json:"notify_type"`
	Username   string `json:"username"`
	PollID     string `json:"poll_id"`
	Topic      string `json:"topic"`
}

const NotifyJoinPoll = "join_poll"
