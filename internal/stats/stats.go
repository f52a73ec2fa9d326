package stats

import "communityAPI/internal/post"

// Helpfulness aggregates what a user's posts received across every workspace.
type Helpfulness struct {
	UserID        string  `json:"user_id"`
	PostCount     int     `json:"post_count"`
	TotalHelpful  int     `json:"total_helpful"`
	ReceivedCount int     `json:"received_count"`
	MeanReceived  float64 `json:"mean_received"` // 0 when nothing was received
}

// Aggregate sums the posts authored by userID. Posts by other authors and
// ratings the user left on their own posts are skipped. TotalHelpful trusts the
// stored HelpfulCount, which Recompute keeps in step with the ratings.
func Aggregate(userID string, posts []*post.Post) Helpfulness {
	h := Helpfulness{UserID: userID}
	sum := 0

	for _, p := range posts {
		if p == nil || p.AuthorID != userID {
			continue
		}
		h.PostCount++
		h.TotalHelpful += p.HelpfulCount

		for _, r := range p.PeerRatings() {
			h.ReceivedCount++
			sum += r.Score
		}
	}

	if h.ReceivedCount > 0 {
		h.MeanReceived = float64(sum) / float64(h.ReceivedCount)
	}
	return h
}
