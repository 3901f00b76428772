package validation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-vigia/db/memory"
	"go-vigia/types"
	"go-vigia/validation"
)

func newEngine(t *testing.T) (*memory.Store, *validation.Engine) {
	t.Helper()
	store := memory.NewStore(zerolog.Nop())
	return store, validation.NewEngine(store, zerolog.Nop())
}

func seedIncident(t *testing.T, store *memory.Store, reporterUID string) string {
	t.Helper()
	inc := &types.Incident{
		CategoryGroup: "seguridad",
		Type:          "robo",
		Title:         "Robo en la calle 80",
		ReporterUID:   reporterUID,
		Locality:      "Suba",
		EventAt:       time.Now().UTC(),
		Status:        types.StatusPending,
		VotedTrue:     []string{},
		VotedFalse:    []string{},
	}
	id, err := store.CreateIncident(context.Background(), inc)
	require.NoError(t, err)
	return id
}

func TestVoteTrueProgressionToVerified(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	res, err := engine.VoteTrue(ctx, id, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ValidationScore)
	assert.Equal(t, types.StatusPending, res.Status)
	assert.False(t, res.Verified)

	res, err = engine.VoteTrue(ctx, id, "u3")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ValidationScore)
	assert.Equal(t, types.StatusPending, res.Status, "score 2 must stay pending")

	res, err = engine.VoteTrue(ctx, id, "u4")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ValidationScore)
	assert.True(t, res.Verified)
	assert.False(t, res.FlaggedFalse)
	assert.Equal(t, types.StatusVerified, res.Status)

	inc, err := store.GetIncident(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, inc.ConfirmationsCount)
	assert.ElementsMatch(t, []string{"u2", "u3", "u4"}, inc.ConfirmedBy)
}

func TestSelfVoteAlwaysRejected(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	_, err := engine.VoteTrue(ctx, id, "u2")
	require.NoError(t, err)

	_, err = engine.VoteTrue(ctx, id, "u1")
	assert.ErrorIs(t, err, types.ErrSelfVote)
	_, err = engine.VoteFalse(ctx, id, "u1")
	assert.ErrorIs(t, err, types.ErrSelfVote)

	inc, err := store.GetIncident(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, inc.VotedTrue)
	assert.Empty(t, inc.VotedFalse)
	assert.Equal(t, 1, inc.ValidationScore, "rejected vote must not change state")
}

func TestDuplicateVoteRejected(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	_, err := engine.VoteTrue(ctx, id, "u2")
	require.NoError(t, err)
	_, err = engine.VoteTrue(ctx, id, "u2")
	assert.ErrorIs(t, err, types.ErrDuplicateVote)

	_, err = engine.VoteFalse(ctx, id, "u3")
	require.NoError(t, err)
	_, err = engine.VoteFalse(ctx, id, "u3")
	assert.ErrorIs(t, err, types.ErrDuplicateVote)

	inc, err := store.GetIncident(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, inc.ValidationScore)
}

func TestSwitchVoteIsAtomic(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	res, err := engine.VoteFalse(ctx, id, "u2")
	require.NoError(t, err)
	require.Equal(t, -1, res.ValidationScore)

	// switching direction moves the score by exactly 2 in one operation
	res, err = engine.VoteTrue(ctx, id, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ValidationScore)
	assert.Equal(t, 1, res.VotedTrueCount)
	assert.Equal(t, 0, res.VotedFalseCount)

	inc, err := store.GetIncident(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, inc.VotedTrue)
	assert.Empty(t, inc.VotedFalse)
}

func TestFlaggedFalseAtThreshold(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	for i := 2; i <= 5; i++ {
		res, err := engine.VoteFalse(ctx, id, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
		assert.Equal(t, types.StatusPending, res.Status, "score %d must stay pending", res.ValidationScore)
		assert.False(t, res.FlaggedFalse)
	}

	res, err := engine.VoteFalse(ctx, id, "u6")
	require.NoError(t, err)
	assert.Equal(t, -5, res.ValidationScore)
	assert.True(t, res.FlaggedFalse)
	assert.False(t, res.Verified)
	assert.Equal(t, types.StatusFalseReport, res.Status)
}

func TestVerifiedCanSwingBackToFlagged(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	for _, u := range []string{"u2", "u3", "u4"} {
		_, err := engine.VoteTrue(ctx, id, u)
		require.NoError(t, err)
	}
	inc, err := store.GetIncident(ctx, id)
	require.NoError(t, err)
	require.Equal(t, types.StatusVerified, inc.Status)

	// three switched votes plus five fresh false votes: 3 - 8 = -5
	for _, u := range []string{"u2", "u3", "u4"} {
		_, err := engine.VoteFalse(ctx, id, u)
		require.NoError(t, err)
	}
	for _, u := range []string{"u5", "u6"} {
		_, err := engine.VoteFalse(ctx, id, u)
		require.NoError(t, err)
	}

	inc, err = store.GetIncident(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, -5, inc.ValidationScore)
	assert.True(t, inc.FlaggedFalse)
	assert.False(t, inc.Verified)
	assert.Equal(t, types.StatusFalseReport, inc.Status)
}

func TestRemoveVote(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	_, err := engine.RemoveVote(ctx, id, "u2")
	assert.ErrorIs(t, err, types.ErrNoVote)

	_, err = engine.VoteTrue(ctx, id, "u2")
	require.NoError(t, err)
	res, err := engine.RemoveVote(ctx, id, "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ValidationScore)
	assert.Equal(t, 0, res.VotedTrueCount)

	_, err = engine.VoteFalse(ctx, id, "u3")
	require.NoError(t, err)
	res, err = engine.RemoveVote(ctx, id, "u3")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ValidationScore)
	assert.Equal(t, 0, res.VotedFalseCount)
}

func TestVoteUnknownIncident(t *testing.T) {
	_, engine := newEngine(t)
	_, err := engine.VoteTrue(context.Background(), "no-such-id", "u2")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	inc := &types.Incident{
		ReporterUID: "u1",
		VotedTrue:   []string{"u2", "u3", "u4"},
		VotedFalse:  []string{"u5"},
	}

	validation.Recompute(inc)
	first := *inc
	validation.Recompute(inc)

	assert.Equal(t, first.ValidationScore, inc.ValidationScore)
	assert.Equal(t, first.Status, inc.Status)
	assert.Equal(t, 2, inc.ValidationScore)
	assert.Equal(t, 3, inc.ConfirmationsCount)
	assert.Equal(t, inc.VotedTrue, inc.ConfirmedBy)
}

func TestFlaggedWinsOverVerifiedOnStaleFlags(t *testing.T) {
	// a stale verified flag must not survive a recompute at a flagged score
	inc := &types.Incident{
		ReporterUID: "u1",
		Verified:    true,
		Status:      types.StatusVerified,
		VotedFalse:  []string{"u2", "u3", "u4", "u5", "u6"},
	}
	validation.Recompute(inc)

	assert.Equal(t, -5, inc.ValidationScore)
	assert.False(t, inc.Verified)
	assert.True(t, inc.FlaggedFalse)
	assert.Equal(t, types.StatusFalseReport, inc.Status)
}

func TestConcurrentVotesAreNotLost(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	const voters = 30
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := engine.VoteTrue(ctx, id, fmt.Sprintf("voter-%d", n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	inc, err := store.GetIncident(ctx, id)
	require.NoError(t, err)
	assert.Len(t, inc.VotedTrue, voters)
	assert.Equal(t, voters, inc.ValidationScore)
	assert.Equal(t, voters, inc.ConfirmationsCount)
}

func TestVoteSetsStayDisjoint(t *testing.T) {
	ctx := context.Background()
	store, engine := newEngine(t)
	id := seedIncident(t, store, "u1")

	users := []string{"u2", "u3", "u4", "u5"}
	for i, u := range users {
		var err error
		if i%2 == 0 {
			_, err = engine.VoteTrue(ctx, id, u)
		} else {
			_, err = engine.VoteFalse(ctx, id, u)
		}
		require.NoError(t, err)
	}
	// everybody switches sides
	for i, u := range users {
		var err error
		if i%2 == 0 {
			_, err = engine.VoteFalse(ctx, id, u)
		} else {
			_, err = engine.VoteTrue(ctx, id, u)
		}
		require.NoError(t, err)
	}

	inc, err := store.GetIncident(ctx, id)
	require.NoError(t, err)
	for _, u := range inc.VotedTrue {
		assert.NotContains(t, inc.VotedFalse, u)
	}
	assert.Equal(t, len(inc.VotedTrue)-len(inc.VotedFalse), inc.ValidationScore)
}
