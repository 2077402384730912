package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionStore struct {
	mu        sync.Mutex
	snapshots map[string]AttemptSnapshot
	saveCalls int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{snapshots: make(map[string]AttemptSnapshot)}
}

func (f *fakeSessionStore) Load(_ context.Context, sessionID string) (*Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return RestoreAttempt(snapshot), nil
}

func (f *fakeSessionStore) Save(_ context.Context, sessionID string, attempt *Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	f.snapshots[sessionID] = attempt.Snapshot()
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snapshots, sessionID)
	return nil
}

type fakeResultRepo struct {
	mu        sync.Mutex
	results   []ResultRecord
	listCalls int
}

func (f *fakeResultRepo) SaveResult(_ context.Context, result ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

func (f *fakeResultRepo) ListResults(_ context.Context) ([]ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]ResultRecord(nil), f.results...), nil
}

func (f *fakeResultRepo) ListUserResults(_ context.Context, username string, limit int) ([]ResultRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ResultRecord
	for _, result := range f.results {
		if result.Username == username {
			out = append(out, result)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type fakePublisher struct {
	events []GradedEvent
}

func (f *fakePublisher) PublishAttemptGraded(_ context.Context, event GradedEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeObserver struct {
	started     int
	graded      int
	forced      int
	storeFailed int
}

func (f *fakeObserver) AttemptStarted() { f.started++ }

func (f *fakeObserver) AttemptGraded(forced bool, _ float64) {
	f.graded++
	if forced {
		f.forced++
	}
}

func (f *fakeObserver) StoreFailed() { f.storeFailed++ }

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type serviceFixture struct {
	service   *Service
	store     *MemoryStore
	sessions  *fakeSessionStore
	results   *fakeResultRepo
	publisher *fakePublisher
	observer  *fakeObserver
	clock     *testClock
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	f := serviceFixture{
		store: NewMemoryStore(poolRecords(map[string]int{
			"Prepare the data": 20,
			"Model the data":   15,
			"PBI Service":      20,
			"Visualization":    10,
		})),
		sessions:  newFakeSessionStore(),
		results:   &fakeResultRepo{},
		publisher: &fakePublisher{},
		observer:  &fakeObserver{},
		clock:     &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.service = NewService(f.store, f.sessions, f.results, DefaultSettings(), ServiceOptions{
		Observer:  f.observer,
		Publisher: f.publisher,
		Clock:     f.clock.Now,
		Rand:      seededRand(),
	})
	return f
}

// answerAll selects the first correct answer set for every question.
func answerAll(t *testing.T, s *Service, sessionID string, view View) {
	t.Helper()
	for _, input := range view.Inputs {
		_, err := s.Dispatch(context.Background(), sessionID, SelectOption{Index: input.Index, Option: input.Question.CorrectAnswers[0]})
		require.NoError(t, err)
	}
}

func TestCurrentInitializesOnce(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.service.Current(ctx, "s1")
	require.NoError(t, err)
	second, err := f.service.Current(ctx, "s1")
	require.NoError(t, err)

	assert.Len(t, first.Inputs, 40)
	assert.Equal(t, first.AttemptID, second.AttemptID)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, TimerRunning, second.Timer)
	assert.Equal(t, 1, f.observer.started)
}

func TestCurrentRejectsBlankSession(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Current(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	a, err := f.service.Current(ctx, "a")
	require.NoError(t, err)
	b, err := f.service.Current(ctx, "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.AttemptID, b.AttemptID)

	_, err = f.service.Submit(ctx, "a")
	require.NoError(t, err)

	b, err = f.service.Current(ctx, "b")
	require.NoError(t, err)
	assert.False(t, b.Submitted)
}

func TestStoreUnavailableCreatesNoAttempt(t *testing.T) {
	f := newServiceFixture(t)
	f.store.SetError(errors.New("connection refused"))

	_, err := f.service.Current(context.Background(), "s1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, f.sessions.snapshots)
	assert.Equal(t, 1, f.observer.storeFailed)

	f.store.SetError(nil)
	view, err := f.service.Current(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, view.Inputs, 40)
}

func TestEmptyPoolIsStoreUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Replace(nil)

	_, err := f.service.Current(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestSubmitGradesExactlyOnce(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Dispatch(ctx, "s1", SetUsername{Username: " Ana "})
	require.NoError(t, err)
	view, err := f.service.Current(ctx, "s1")
	require.NoError(t, err)
	answerAll(t, f.service, "s1", view)

	submitted, err := f.service.Submit(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, submitted.Report)
	assert.Equal(t, 40, submitted.Report.Correct)
	assert.True(t, submitted.Report.Passed)
	assert.False(t, submitted.Forced)

	_, err = f.service.Submit(ctx, "s1")
	assert.ErrorIs(t, err, ErrAttemptSubmitted)

	require.Len(t, f.results.results, 1)
	assert.Equal(t, "ana", f.results.results[0].Username)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "s1", f.publisher.events[0].SessionID)
	assert.Equal(t, 1, f.observer.graded)
}

func TestAnswersAfterSubmitAreRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.service.Submit(ctx, "s1")
	require.NoError(t, err)

	_, err = f.service.Dispatch(ctx, "s1", SelectOption{Index: 0, Option: view.Inputs[0].Question.Choices[0]})
	assert.ErrorIs(t, err, ErrAttemptSubmitted)
}

func TestExpiryForcesGradingOnNextRequest(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	view, err := f.service.Current(ctx, "s1")
	require.NoError(t, err)
	_, err = f.service.Dispatch(ctx, "s1", SelectOption{Index: 0, Option: view.Inputs[0].Question.CorrectAnswers[0]})
	require.NoError(t, err)

	f.clock.now = f.clock.now.Add(time.Hour)

	_, err = f.service.Dispatch(ctx, "s1", SelectOption{Index: 1, Option: view.Inputs[1].Question.CorrectAnswers[0]})
	require.ErrorIs(t, err, ErrAttemptSubmitted)

	expired, err := f.service.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, TimerExpired, expired.Timer)
	assert.True(t, expired.Forced)
	require.NotNil(t, expired.Report)
	assert.Equal(t, 1, expired.Report.Correct)
	assert.True(t, expired.Report.Forced)

	assert.Len(t, f.results.results, 1)
	assert.True(t, f.results.results[0].Forced)
	assert.Equal(t, 1, f.observer.forced)
}

func TestResultWhileRunning(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Result(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrAttemptRunning)
}

func TestRestartDrawsFreshAttempt(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Dispatch(ctx, "s1", SetUsername{Username: "ana"})
	require.NoError(t, err)
	before, err := f.service.Current(ctx, "s1")
	require.NoError(t, err)
	answerAll(t, f.service, "s1", before)
	_, err = f.service.Submit(ctx, "s1")
	require.NoError(t, err)

	after, err := f.service.Restart(ctx, "s1")
	require.NoError(t, err)

	assert.NotEqual(t, before.AttemptID, after.AttemptID)
	assert.NotEqual(t, before.Version, after.Version)
	assert.NotEqual(t, before.Inputs[0].Key, after.Inputs[0].Key)
	assert.Equal(t, "ana", after.Username)
	assert.False(t, after.Submitted)
	assert.Nil(t, after.Report)
	counts := make(map[string]int)
	for _, input := range after.Inputs {
		assert.Empty(t, input.Selected)
		counts[input.Question.Category]++
	}
	for _, quota := range DefaultQuotas() {
		assert.Equal(t, quota.Quota, counts[quota.Name], quota.Name)
	}
}

func TestRestartKeepsAttemptWhenStoreUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Dispatch(ctx, "s1", SetUsername{Username: "ana"})
	require.NoError(t, err)
	before, err := f.service.Dispatch(ctx, "s1", SelectOption{Index: 0, Option: "right"})
	require.NoError(t, err)

	f.store.SetError(errors.New("connection refused"))
	_, err = f.service.Restart(ctx, "s1")
	require.ErrorIs(t, err, ErrStoreUnavailable)

	f.store.SetError(nil)
	current, err := f.service.Current(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before.AttemptID, current.AttemptID)
	assert.Equal(t, "ana", current.Username)
	assert.Equal(t, []string{"right"}, current.Inputs[0].Selected)
}

func TestLeaderboardRebuildDoesNotCountResultTwice(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	record := ResultRecord{
		AttemptID:   "a1",
		Username:    "ana",
		Percentage:  80,
		SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	// saved, then a reader rebuilds the cache before the patch lands
	require.NoError(t, f.results.SaveResult(ctx, record))
	_, err := f.service.Leaderboard(ctx, 10)
	require.NoError(t, err)
	f.service.updateCachedLeaderboardAfterResult(record)

	board, err := f.service.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Attempts)
}

func TestLeaderboardPatchedAfterResult(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	board, err := f.service.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, board)

	_, err = f.service.Dispatch(ctx, "low", SetUsername{Username: "bo"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, "low")
	require.NoError(t, err)

	_, err = f.service.Dispatch(ctx, "high", SetUsername{Username: "ana"})
	require.NoError(t, err)
	view, err := f.service.Current(ctx, "high")
	require.NoError(t, err)
	answerAll(t, f.service, "high", view)
	_, err = f.service.Submit(ctx, "high")
	require.NoError(t, err)

	board, err = f.service.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "ana", board[0].Username)
	assert.Equal(t, "bo", board[1].Username)
	assert.Equal(t, 1, f.results.listCalls)

	top, err := f.service.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestBuildLeaderboardKeepsBestAttempt(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := buildLeaderboard([]ResultRecord{
		{Username: "ana", Percentage: 50, SubmittedAt: at},
		{Username: "bo", Percentage: 80, SubmittedAt: at.Add(time.Minute)},
		{Username: "ana", Percentage: 80, SubmittedAt: at.Add(2 * time.Minute)},
		{Username: "", Percentage: 100, SubmittedAt: at},
	})

	require.Len(t, entries, 2)
	assert.Equal(t, "bo", entries[0].Username)
	assert.Equal(t, "ana", entries[1].Username)
	assert.Equal(t, 2, entries[1].Attempts)
	assert.Equal(t, 80.0, entries[1].Percentage)
}

func TestHistoryNormalizesUsername(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Dispatch(ctx, "s1", SetUsername{Username: "Ana"})
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, "s1")
	require.NoError(t, err)

	history, err := f.service.History(ctx, " ANA ", 5)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
