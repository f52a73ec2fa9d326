package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestFirestoreStore needs the Firestore emulator (FIRESTORE_EMULATOR_HOST).
func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "community-test")
	require.NoError(t, err)

	st := NewFirestoreStore(client)
	defer st.Close()

	testDocumentStore(t, st)
}

func TestClassifyFirestoreError(t *testing.T) {
	assert.Nil(t, classifyFirestoreError(nil))
	assert.ErrorIs(t, classifyFirestoreError(status.Error(codes.NotFound, "gone")), ErrNotFound)
	assert.ErrorIs(t, classifyFirestoreError(status.Error(codes.Unavailable, "down")), ErrUnavailable)
	assert.ErrorIs(t, classifyFirestoreError(status.Error(codes.DeadlineExceeded, "slow")), ErrUnavailable)
	assert.ErrorIs(t, classifyFirestoreError(status.Error(codes.Aborted, "contention")), ErrConflict)
	assert.ErrorIs(t, classifyFirestoreError(ErrConflict), ErrConflict)

	other := errors.New("boom")
	assert.Equal(t, other, classifyFirestoreError(other))
}
