package services

import (
	"testing"

	"clicker-battle/models"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeSelfIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	properties := gopter.NewProperties(nil)
	properties.Property("challenging yourself is always an invalid opponent", prop.ForAll(
		func(id string) bool {
			_, err := env.challenges.Challenge(ctx, id, id)
			return err == ErrInvalidOpponent
		},
		gen.OneGenOf(gen.Identifier(), gen.AnyString(), gen.Const(uuid.NewString())),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))

	var count int64
	require.NoError(t, env.db.Model(&models.Match{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChallengeUnknownOpponent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", 1000)

	_, err := env.challenges.Challenge(t.Context(), alice.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrInvalidOpponent)

	_, err = env.challenges.Challenge(t.Context(), alice.ID, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidOpponent)
}

func TestChallengeAcceptFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.createUser(t, "alice", 1000)
	bob := env.createUser(t, "bob", 1000)

	m, err := env.challenges.Challenge(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KindChallenge, m.Kind)
	assert.Equal(t, models.StatusWaiting, m.Status)

	pending, err := env.challenges.Pending(ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, m.ID, pending.ChallengeID)

	events, cancel, err := env.notifier.Subscribe(ctx, m.ID)
	require.NoError(t, err)
	defer cancel()

	_, err = env.challenges.Accept(ctx, m.ID, bob.ID)
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, "started", ev.Type)
	assert.Equal(t, models.StatusInProgress, ev.Status)

	status, err := env.challenges.Status(ctx, m.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, status)

	pending, err = env.challenges.Pending(ctx, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, pending, "accepted challenges are no longer pending")
}

func TestDeclineClearsPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	alice := env.createUser(t, "alice", 1000)
	bob := env.createUser(t, "bob", 1000)

	m, err := env.challenges.Challenge(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, env.challenges.Decline(ctx, m.ID, bob.ID))

	pending, err := env.challenges.Pending(ctx, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, pending)

	_, err = env.challenges.Status(ctx, m.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// declining again, or something that never existed, is still acknowledged
	assert.NoError(t, env.challenges.Decline(ctx, m.ID, bob.ID))
	assert.NoError(t, env.challenges.Decline(ctx, uuid.NewString(), bob.ID))
}
