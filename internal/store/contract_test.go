package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communityAPI/internal/badge"
	"communityAPI/internal/notification"
	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

// testDocumentStore runs the behaviour every backend has to share.
func testDocumentStore(t *testing.T, st DocumentStore) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	author := "author-" + uuid.NewString()

	t.Run("create and get post", func(t *testing.T) {
		p := post.New(uuid.NewString(), author, "Asha", workspace.SocialAnxiety, "first", base)
		require.NoError(t, st.PutPost(ctx, p))
		assert.NotZero(t, p.Version)

		got, err := st.GetPost(ctx, workspace.SocialAnxiety, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "Asha", got.AuthorDisplayName)
		assert.Equal(t, p.Version, got.Version)
		assert.Empty(t, got.Ratings)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := st.GetPost(ctx, workspace.SocialAnxiety, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("post lives in one topic only", func(t *testing.T) {
		p := post.New(uuid.NewString(), author, "", workspace.TimeManagement, "scoped", base)
		require.NoError(t, st.PutPost(ctx, p))

		_, err := st.GetPost(ctx, workspace.FuturePlanning, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		p := post.New(uuid.NewString(), author, "", workspace.SocialAnxiety, "cas", base)
		require.NoError(t, st.PutPost(ctx, p))

		first, err := st.GetPost(ctx, workspace.SocialAnxiety, p.ID)
		require.NoError(t, err)
		second, err := st.GetPost(ctx, workspace.SocialAnxiety, p.ID)
		require.NoError(t, err)

		first.Upsert("r1", 5)
		require.NoError(t, st.PutPost(ctx, first))

		second.Upsert("r2", 4)
		assert.ErrorIs(t, st.PutPost(ctx, second), ErrConflict)

		got, err := st.GetPost(ctx, workspace.SocialAnxiety, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []post.Rating{{RaterID: "r1", Score: 5}}, got.Ratings)
		assert.Equal(t, 1, got.HelpfulCount)
	})

	t.Run("double create conflicts", func(t *testing.T) {
		p := post.New(uuid.NewString(), author, "", workspace.SocialAnxiety, "twice", base)
		require.NoError(t, st.PutPost(ctx, p))

		dup := post.New(p.ID, author, "", workspace.SocialAnxiety, "twice", base)
		assert.ErrorIs(t, st.PutPost(ctx, dup), ErrConflict)
	})

	t.Run("list newest first", func(t *testing.T) {
		topic := workspace.IdentityCrisis
		older := post.New(uuid.NewString(), author, "", topic, "older", base.Add(-time.Hour))
		newer := post.New(uuid.NewString(), author, "", topic, "newer", base.Add(time.Hour))
		require.NoError(t, st.PutPost(ctx, older))
		require.NoError(t, st.PutPost(ctx, newer))

		posts, err := st.ListPostsByTopic(ctx, topic)
		require.NoError(t, err)

		idx := map[string]int{}
		for i, p := range posts {
			idx[p.ID] = i
		}
		assert.Less(t, idx[newer.ID], idx[older.ID])
	})

	t.Run("reputation lifecycle", func(t *testing.T) {
		userID := "user-" + uuid.NewString()

		_, err := st.GetUserReputation(ctx, userID)
		require.ErrorIs(t, err, ErrNotFound)

		rep := badge.NewUserReputation(userID)
		rep.Badges[badge.CertifiedListener] = base
		require.NoError(t, st.PutUserReputation(ctx, rep))

		stale := rep.Clone()
		rep.Badges[badge.WisdomKeeper] = base
		require.NoError(t, st.PutUserReputation(ctx, rep))

		stale.Badges[badge.EmpathyExpert] = base
		assert.ErrorIs(t, st.PutUserReputation(ctx, stale), ErrConflict)

		got, err := st.GetUserReputation(ctx, userID)
		require.NoError(t, err)
		assert.True(t, got.Has(badge.CertifiedListener))
		assert.True(t, got.Has(badge.WisdomKeeper))
		assert.False(t, got.Has(badge.EmpathyExpert))
		assert.True(t, got.Badges[badge.CertifiedListener].Equal(base))
	})

	t.Run("devices", func(t *testing.T) {
		userID := "user-" + uuid.NewString()
		device := notification.DeviceToken{UserID: userID, Token: "tok-" + uuid.NewString(), Platform: "android", CreatedAt: base}

		require.NoError(t, st.RegisterDevice(ctx, device))
		require.NoError(t, st.RegisterDevice(ctx, device))

		devices, err := st.ListDevices(ctx, userID)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, device.Token, devices[0].Token)
	})

	t.Run("device changes owner", func(t *testing.T) {
		previous := "user-" + uuid.NewString()
		next := "user-" + uuid.NewString()
		token := "tok-" + uuid.NewString()

		require.NoError(t, st.RegisterDevice(ctx, notification.DeviceToken{UserID: previous, Token: token, Platform: "ios", CreatedAt: base}))
		require.NoError(t, st.RegisterDevice(ctx, notification.DeviceToken{UserID: next, Token: token, Platform: "ios", CreatedAt: base.Add(time.Minute)}))

		devices, err := st.ListDevices(ctx, previous)
		require.NoError(t, err)
		assert.Empty(t, devices)

		devices, err = st.ListDevices(ctx, next)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, token, devices[0].Token)
		assert.Equal(t, next, devices[0].UserID)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, st.Ping(ctx))
	})
}
