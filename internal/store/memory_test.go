package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

func TestMemoryStore(t *testing.T) {
	testDocumentStore(t, NewMemoryStore())
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	p := post.New("p1", "author", "", workspace.MentalHealth, "hi", time.Now())
	require.NoError(t, st.PutPost(ctx, p))

	p.Ratings = append(p.Ratings, post.Rating{RaterID: "sneaky", Score: 5})

	got, err := st.GetPost(ctx, workspace.MentalHealth, "p1")
	require.NoError(t, err)
	assert.Empty(t, got.Ratings)
}

func TestMemoryStoreUpdateOfMissingPost(t *testing.T) {
	p := post.New("ghost", "author", "", workspace.MentalHealth, "hi", time.Now())
	p.Version = 3

	assert.ErrorIs(t, NewMemoryStore().PutPost(context.Background(), p), ErrNotFound)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().ListPostsByTopic(ctx, workspace.MentalHealth)
	assert.ErrorIs(t, err, context.Canceled)
}
