package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communityAPI/internal/stats"
)

func TestBuildRanksAndTies(t *testing.T) {
	helpers := []stats.Helpfulness{
		{UserID: "c", TotalHelpful: 3, MeanReceived: 4},
		{UserID: "a", TotalHelpful: 7, MeanReceived: 4.5},
		{UserID: "b", TotalHelpful: 3, MeanReceived: 4},
		{UserID: "d", TotalHelpful: 1, MeanReceived: 5},
	}
	names := map[string]string{"a": "Asha"}

	board := Build(helpers, names, "d", 3)

	require.Len(t, board.Entries, 3)
	assert.Equal(t, 4, board.TotalUsers)
	assert.Equal(t, "a", board.Entries[0].UserID)
	assert.Equal(t, "Asha", board.Entries[0].DisplayName)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, "b", board.Entries[1].UserID)
	assert.Equal(t, 2, board.Entries[1].Rank)
	assert.Equal(t, "c", board.Entries[2].UserID)
	assert.Equal(t, 2, board.Entries[2].Rank)

	require.NotNil(t, board.UserPosition)
	assert.Equal(t, 4, board.UserPosition.Rank)
}

func TestBuildEmpty(t *testing.T) {
	board := Build(nil, nil, "u", 10)

	assert.NotNil(t, board.Entries)
	assert.Empty(t, board.Entries)
	assert.Nil(t, board.UserPosition)
	assert.Zero(t, board.TotalUsers)
}
