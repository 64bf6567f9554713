package controller

import (
	"math"
	"sort"

	"github.com/saxenaaman628/ranker/internal/models"
)

// Score turns the poll's rankings into ordered results.
//
// A nomination at position n (0-indexed) of a ranking earns
// ((v - 0.5n) / v) ^ (n+1), where v is the poll's votes per voter. Positions
// at or beyond v are ignored, as are nominations that no longer exist in the
// poll. Results are ordered by score, highest first, then by nomination id.
func Score(poll *models.Poll) []models.Result {
	results := []models.Result{}
	v := float64(poll.VotesPerVoter)
	if v <= 0 {
		return results
	}

	// fixed summation order keeps float results identical across runs
	users := make([]string, 0, len(poll.Rankings))
	for user := range poll.Rankings {
		users = append(users, user)
	}
	sort.Strings(users)

	scores := make(map[models.NominationID]float64)
	for _, user := range users {
		ranking := poll.Rankings[user]
		for n, id := range ranking {
			if n >= poll.VotesPerVoter {
				break
			}
			if _, ok := poll.Nominations[id]; !ok {
				continue
			}
			scores[id] += math.Pow((v-0.5*float64(n))/v, float64(n+1))
		}
	}

	for id, score := range scores {
		results = append(results, models.Result{
			NominationID:   id,
			NominationText: poll.Nominations[id].Text,
			Score:          score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].NominationID < results[j].NominationID
	})
	return results
}
