package utils

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const pollIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	PollIDLength       = 6
	nominationIDLength = 8
)

// CreatePollID returns a short code people can type to join a poll.
func CreatePollID() (string, error) {
	return gonanoid.Generate(pollIDAlphabet, PollIDLength)
}

func CreateUserID() string {
	return uuid.NewString()
}

func CreateNominationID() (string, error) {
	return gonanoid.New(nominationIDLength)
}
