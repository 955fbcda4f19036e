package services

import (
	"testing"
	"time"

	"clicker-battle/events"
	"clicker-battle/internal/testutil"
	"clicker-battle/logger"
	"clicker-battle/models"

	"github.com/gosimple/slug"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	store       *MatchStore
	notifier    *events.MemoryNotifier
	results     *testutil.RecordingPublisher
	challenges  *ChallengeService
	matchmaking *MatchmakingService
	battles     *BattleService
	finisher    *Finisher
	users       *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.OpenDB(t)
	log := logger.Nop()
	notifier := events.NewMemoryNotifier()
	results := &testutil.RecordingPublisher{}

	return &testEnv{
		db:          db,
		store:       NewMatchStore(db),
		notifier:    notifier,
		results:     results,
		challenges:  NewChallengeService(db, notifier, log),
		matchmaking: NewMatchmakingService(db, notifier, log, 200, 5),
		battles:     NewBattleService(db, notifier, log, 2*time.Second),
		finisher:    NewFinisher(db, notifier, results, log),
		users:       NewUserService(db, log),
	}
}

func (e *testEnv) createUser(t *testing.T, name string, rating int) *models.User {
	t.Helper()
	u := &models.User{Username: name, Handle: slug.Make(name), PasswordHash: "x", EloRating: rating}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) reloadUser(t *testing.T, id string) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, e.db.Where("id = ?", id).First(&u).Error)
	return &u
}

// startedMatch creates an in_progress challenge between a and b.
func (e *testEnv) startedMatch(t *testing.T, a, b *models.User) *models.Match {
	t.Helper()
	m, err := e.challenges.Challenge(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	m, err = e.challenges.Accept(t.Context(), m.ID, b.ID)
	require.NoError(t, err)
	return m
}
