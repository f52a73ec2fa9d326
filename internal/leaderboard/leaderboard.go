package leaderboard

import (
	"sort"

	"communityAPI/internal/stats"
)

type LeaderboardEntry struct {
	UserID        string  `json:"user_id"`
	DisplayName   string  `json:"display_name"`
	TotalHelpful  int     `json:"total_helpful"`
	ReceivedCount int     `json:"received_count"`
	MeanReceived  float64 `json:"mean_received"`
	PostCount     int     `json:"post_count"`
	Rank          int     `json:"rank"`
}

type Leaderboard struct {
	Entries      []*LeaderboardEntry `json:"entries"`
	UserPosition *LeaderboardEntry   `json:"user_position"`
	TotalUsers   int                 `json:"total_users"`
}

// Build ranks helpers by total helpful ratings, then by mean rating received.
// Equal scores share a rank. Only the first limit entries are kept, but
// UserPosition is filled for userID wherever it ranks.
func Build(helpers []stats.Helpfulness, names map[string]string, userID string, limit int) *Leaderboard {
	entries := make([]*LeaderboardEntry, 0, len(helpers))
	for _, h := range helpers {
		entries = append(entries, &LeaderboardEntry{
			UserID:        h.UserID,
			DisplayName:   names[h.UserID],
			TotalHelpful:  h.TotalHelpful,
			ReceivedCount: h.ReceivedCount,
			MeanReceived:  h.MeanReceived,
			PostCount:     h.PostCount,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalHelpful != b.TotalHelpful {
			return a.TotalHelpful > b.TotalHelpful
		}
		if a.MeanReceived != b.MeanReceived {
			return a.MeanReceived > b.MeanReceived
		}
		return a.UserID < b.UserID
	})

	board := &Leaderboard{Entries: []*LeaderboardEntry{}, TotalUsers: len(entries)}
	for i, e := range entries {
		e.Rank = i + 1
		if i > 0 {
			prev := entries[i-1]
			if prev.TotalHelpful == e.TotalHelpful && prev.MeanReceived == e.MeanReceived {
				e.Rank = prev.Rank
			}
		}
		if e.UserID == userID {
			board.UserPosition = e
		}
		if limit <= 0 || i < limit {
			board.Entries = append(board.Entries, e)
		}
	}

	return board
}
