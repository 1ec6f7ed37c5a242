package pg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared_errors "github.com/clear-retro/clearretro/shared/errors"

	"github.com/clear-retro/clearretro/shared/domain"
)

func TestBoardLifecycle(t *testing.T) {
	t.Run("create and get metadata", func(t *testing.T) {
		board := makeBoard(t)

		got, err := storage.GetBoardMetadata(board.Id)
		require.NoError(t, err)
		assert.Equal(t, board.Id, got.Id)
		assert.Equal(t, board.Name, got.Name)
		assert.Equal(t, domain.BoardActive, got.Status)
		require.Len(t, got.Columns, 2)
		assert.Equal(t, domain.ColumnId("start"), got.Columns[0].Id)
		assert.Equal(t, "Start", got.Columns[0].Title)
		assert.False(t, got.Private)
		assert.False(t, got.Timer.Running)
		assert.WithinDuration(t, board.CreatedAt, got.CreatedAt, time.Second)
		assert.WithinDuration(t, board.CreatedAt, got.LastActivity, time.Second)
	})

	t.Run("get missing board", func(t *testing.T) {
		_, err := storage.GetBoardMetadata("no-such-board")
		var errWithStatus *shared_errors.ErrorWithStatusCode
		require.ErrorAs(t, err, &errWithStatus)
		assert.Equal(t, 404, errWithStatus.StatusCode)
	})

	t.Run("get board includes cards", func(t *testing.T) {
		board := makeBoard(t)
		makeCard(t, board.Id, "start", "first")
		makeCard(t, board.Id, "start", "second")

		got, err := storage.GetBoard(board.Id)
		require.NoError(t, err)
		assert.Equal(t, board.Id, got.Id)
		require.Len(t, got.Cards, 2)
		assert.Equal(t, domain.CardText("first"), got.Cards[0].Text)
		assert.Equal(t, domain.CardText("second"), got.Cards[1].Text)
	})

	t.Run("list boards by creator", func(t *testing.T) {
		first := makeBoard(t)
		second := makeBoard(t)

		boards, err := storage.GetBoardsByCreator("creator")
		require.NoError(t, err)
		ids := make(map[domain.BoardId]bool, len(boards))
		for _, b := range boards {
			ids[b.Id] = true
		}
		assert.True(t, ids[first.Id])
		assert.True(t, ids[second.Id])

		boards, err = storage.GetBoardsByCreator("someone-else")
		require.NoError(t, err)
		assert.Empty(t, boards)
	})

	t.Run("delete board", func(t *testing.T) {
		board := makeBoard(t)
		require.NoError(t, storage.DeleteBoard(board.Id))

		_, err := storage.GetBoardMetadata(board.Id)
		var errWithStatus *shared_errors.ErrorWithStatusCode
		require.ErrorAs(t, err, &errWithStatus)
		assert.Equal(t, 404, errWithStatus.StatusCode)
	})

	t.Run("delete missing board", func(t *testing.T) {
		err := storage.DeleteBoard("no-such-board")
		var errWithStatus *shared_errors.ErrorWithStatusCode
		require.ErrorAs(t, err, &errWithStatus)
		assert.Equal(t, 404, errWithStatus.StatusCode)
	})
}

func TestUpdateBoardSettings(t *testing.T) {
	t.Run("partial patch leaves other fields alone", func(t *testing.T) {
		board := makeBoard(t)
		limit := 3
		err := storage.UpdateBoardSettings(board.Id, domain.BoardSettingsPatch{VoteLimit: &limit}, "")
		require.NoError(t, err)

		got, err := storage.GetBoardMetadata(board.Id)
		require.NoError(t, err)
		assert.Equal(t, 3, got.VoteLimit)
		assert.Equal(t, board.Name, got.Name)
		assert.Equal(t, board.SortMode, got.SortMode)
	})

	t.Run("passcode only written when patch carries one", func(t *testing.T) {
		board := makeBoard(t)
		private := true
		passcode := "hunter2"
		err := storage.UpdateBoardSettings(board.Id,
			domain.BoardSettingsPatch{Private: &private, Passcode: &passcode}, "hashed-passcode")
		require.NoError(t, err)

		got, err := storage.GetBoardMetadata(board.Id)
		require.NoError(t, err)
		assert.True(t, got.Private)
		assert.Equal(t, "hashed-passcode", got.PasscodeHash)

		// A later patch without a passcode must keep the stored hash.
		name := domain.BoardName("Renamed")
		err = storage.UpdateBoardSettings(board.Id, domain.BoardSettingsPatch{Name: &name}, "")
		require.NoError(t, err)

		got, err = storage.GetBoardMetadata(board.Id)
		require.NoError(t, err)
		assert.Equal(t, domain.BoardName("Renamed"), got.Name)
		assert.Equal(t, "hashed-passcode", got.PasscodeHash)
	})

	t.Run("patch bumps last activity", func(t *testing.T) {
		board := makeBoard(t)
		mode := domain.SortByVotes
		err := storage.UpdateBoardSettings(board.Id, domain.BoardSettingsPatch{SortMode: &mode}, "")
		require.NoError(t, err)

		got, err := storage.GetBoardMetadata(board.Id)
		require.NoError(t, err)
		assert.True(t, got.LastActivity.After(board.CreatedAt) || got.LastActivity.Equal(board.CreatedAt))
	})

	t.Run("missing board", func(t *testing.T) {
		limit := 1
		err := storage.UpdateBoardSettings("no-such-board", domain.BoardSettingsPatch{VoteLimit: &limit}, "")
		var errWithStatus *shared_errors.ErrorWithStatusCode
		require.ErrorAs(t, err, &errWithStatus)
		assert.Equal(t, 404, errWithStatus.StatusCode)
	})
}

func TestSetBoardStatus(t *testing.T) {
	board := makeBoard(t)
	require.NoError(t, storage.SetBoardStatus(board.Id, domain.BoardCompleted))

	got, err := storage.GetBoardMetadata(board.Id)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardCompleted, got.Status)

	require.NoError(t, storage.SetBoardStatus(board.Id, domain.BoardActive))
	got, err = storage.GetBoardMetadata(board.Id)
	require.NoError(t, err)
	assert.Equal(t, domain.BoardActive, got.Status)
}

func TestSetTimer(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		board := makeBoard(t)
		endsAt := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Second)
		err := storage.SetTimer(board.Id, domain.Timer{Running: true, EndsAt: endsAt, DurationSeconds: 300})
		require.NoError(t, err)

		got, err := storage.GetBoardMetadata(board.Id)
		require.NoError(t, err)
		assert.True(t, got.Timer.Running)
		assert.Equal(t, 300, got.Timer.DurationSeconds)
		assert.WithinDuration(t, endsAt, got.Timer.EndsAt, time.Second)

		err = storage.SetTimer(board.Id, domain.Timer{Running: false})
		require.NoError(t, err)

		got, err = storage.GetBoardMetadata(board.Id)
		require.NoError(t, err)
		assert.False(t, got.Timer.Running)
		assert.True(t, got.Timer.EndsAt.IsZero())
	})

	t.Run("missing board", func(t *testing.T) {
		err := storage.SetTimer("no-such-board", domain.Timer{Running: true})
		var errWithStatus *shared_errors.ErrorWithStatusCode
		require.ErrorAs(t, err, &errWithStatus)
		assert.Equal(t, 404, errWithStatus.StatusCode)
	})
}

func TestStaleCompletedBoards(t *testing.T) {
	first := makeBoard(t)
	require.NoError(t, storage.SetBoardStatus(first.Id, domain.BoardCompleted))
	second := makeBoard(t)
	require.NoError(t, storage.SetBoardStatus(second.Id, domain.BoardCompleted))
	active := makeBoard(t)

	// A future cutoff sees both completed boards but never the active one.
	ids, err := storage.StaleCompletedBoards(time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Contains(t, ids, first.Id)
	assert.Contains(t, ids, second.Id)
	assert.NotContains(t, ids, active.Id)

	// A cutoff in the past matches nothing just completed.
	ids, err = storage.StaleCompletedBoards(time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, ids, first.Id)
	assert.NotContains(t, ids, second.Id)
}
