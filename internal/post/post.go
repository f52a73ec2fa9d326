package post

import (
	"strings"
	"time"

	"communityAPI/internal/workspace"
)

const (
	MinScore = 1
	MaxScore = 5

	// HelpfulScore is the lowest score counted as a helpful rating.
	HelpfulScore = 4

	DefaultDisplayName = "Anonymous Helper"
)

type Rating struct {
	RaterID string `json:"raterId"`
	Score   int    `json:"score"`
}

// Post is a workspace message together with the peer ratings it received.
// AverageRating and HelpfulCount are derived from Ratings by Recompute.
type Post struct {
	ID                string          `json:"id"`
	AuthorID          string          `json:"authorId"`
	AuthorDisplayName string          `json:"authorDisplayName"`
	Topic             workspace.Topic `json:"topic"`
	Content           string          `json:"content"`
	Ratings           []Rating        `json:"ratings"`
	AverageRating     float64         `json:"averageRating"`
	HelpfulCount      int             `json:"helpfulCount"`
	CreatedAt         time.Time       `json:"createdAt"`

	// Version is the store's concurrency token. Zero means not yet stored.
	Version int64 `json:"-"`
}

func New(id, authorID, displayName string, topic workspace.Topic, content string, createdAt time.Time) *Post {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = DefaultDisplayName
	}

	return &Post{
		ID:                id,
		AuthorID:          authorID,
		AuthorDisplayName: displayName,
		Topic:             topic,
		Content:           strings.TrimSpace(content),
		Ratings:           []Rating{},
		CreatedAt:         createdAt,
	}
}

func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// Upsert sets raterID's score, replacing an earlier score from the same rater.
// It reports whether the rating set changed.
func (p *Post) Upsert(raterID string, score int) bool {
	for i := range p.Ratings {
		if p.Ratings[i].RaterID != raterID {
			continue
		}
		if p.Ratings[i].Score == score {
			return false
		}
		p.Ratings[i].Score = score
		p.Recompute()
		return true
	}

	p.Ratings = append(p.Ratings, Rating{RaterID: raterID, Score: score})
	p.Recompute()
	return true
}

// Recompute derives AverageRating and HelpfulCount from Ratings.
// Ratings left by the author are ignored.
func (p *Post) Recompute() {
	sum, n, helpful := 0, 0, 0
	for _, r := range p.PeerRatings() {
		sum += r.Score
		n++
		if r.Score >= HelpfulScore {
			helpful++
		}
	}

	p.HelpfulCount = helpful
	if n == 0 {
		p.AverageRating = 0
		return
	}
	p.AverageRating = float64(sum) / float64(n)
}

// PeerRatings returns the ratings not left by the author.
func (p *Post) PeerRatings() []Rating {
	out := make([]Rating, 0, len(p.Ratings))
	for _, r := range p.Ratings {
		if r.RaterID == p.AuthorID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// RatingBy returns the score raterID gave, if any.
func (p *Post) RatingBy(raterID string) (int, bool) {
	for _, r := range p.Ratings {
		if r.RaterID == raterID {
			return r.Score, true
		}
	}
	return 0, false
}

// Clone returns a deep copy so stores never share rating slices with callers.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Ratings = make([]Rating, len(p.Ratings))
	copy(c.Ratings, p.Ratings)
	return &c
}
