package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

func rated(id, author string, scores map[string]int) *post.Post {
	p := post.New(id, author, "", workspace.MentalHealth, "hello", time.Time{})
	for rater, score := range scores {
		p.Upsert(rater, score)
	}
	return p
}

func TestAggregate(t *testing.T) {
	posts := []*post.Post{
		rated("p1", "u", map[string]int{"a": 5, "b": 3}),
		rated("p2", "u", map[string]int{"a": 4}),
		rated("p3", "other", map[string]int{"u": 5}),
		nil,
	}

	h := Aggregate("u", posts)

	assert.Equal(t, "u", h.UserID)
	assert.Equal(t, 2, h.PostCount)
	assert.Equal(t, 2, h.TotalHelpful)
	assert.Equal(t, 3, h.ReceivedCount)
	assert.InDelta(t, 4.0, h.MeanReceived, 1e-9)
}

func TestAggregateSkipsSelfRatings(t *testing.T) {
	p := rated("p1", "u", map[string]int{"a": 2})
	p.Ratings = append(p.Ratings, post.Rating{RaterID: "u", Score: 5})
	p.Recompute()

	h := Aggregate("u", []*post.Post{p})

	assert.Equal(t, 1, h.ReceivedCount)
	assert.Equal(t, 0, h.TotalHelpful)
	assert.Equal(t, 2.0, h.MeanReceived)
}

func TestAggregateEmpty(t *testing.T) {
	h := Aggregate("nobody", nil)

	assert.Equal(t, Helpfulness{UserID: "nobody"}, h)
}
