package profile

import (
	"sort"
	"time"

	"github.com/mycelian/mycelian-feed/internal/model"
)

// CommonLikes counts, for every other user who liked any of the given items,
// how many of them they liked. Users below minCommon are dropped.
func CommonLikes(userID string, liked []*model.ContentItem, minCommon int) map[string]int {
	common := make(map[string]int)
	for _, it := range liked {
		for _, liker := range it.Likers {
			if liker != userID {
				common[liker]++
			}
		}
	}
	for id, n := range common {
		if n < minCommon {
			delete(common, id)
		}
	}
	return common
}

// Similarity is the overlap coefficient commonLikes / (candidateTotal + ownLikes).
// It is not symmetric in general: each side divides by its own view of the pair.
func Similarity(commonLikes, candidateTotal, ownLikes int) float64 {
	denom := candidateTotal + ownLikes
	if denom <= 0 {
		return 0
	}
	return float64(commonLikes) / float64(denom)
}

// RankSimilar scores candidates and keeps the top entries by similarity.
func RankSimilar(common, totals map[string]int, ownLikes, minTotal int, now time.Time) []model.SimilarUser {
	out := make([]model.SimilarUser, 0, len(common))
	for id, n := range common {
		total := totals[id]
		if minTotal > 0 && total < minTotal {
			continue
		}
		out = append(out, model.SimilarUser{UserID: id, Score: Similarity(n, total, ownLikes), LastCalculated: now})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if common[out[i].UserID] != common[out[j].UserID] {
			return common[out[i].UserID] > common[out[j].UserID]
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > model.MaxProfileSimilarUsers {
		out = out[:model.MaxProfileSimilarUsers]
	}
	return out
}
