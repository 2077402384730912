package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Settings struct {
	Quotas        []CategoryQuota
	Duration      time.Duration
	PassThreshold float64
	Shuffle       bool
	Strict        bool
	Separator     string
}

func DefaultSettings() Settings {
	return Settings{
		Quotas:        DefaultQuotas(),
		Duration:      DefaultDuration,
		PassThreshold: DefaultPassThreshold,
		Separator:     DefaultSeparator,
	}
}

// Observer receives lifecycle counts, typically for metrics.
type Observer interface {
	AttemptStarted()
	AttemptGraded(forced bool, percentage float64)
	StoreFailed()
}

type GradedEvent struct {
	AttemptID   string         `json:"attempt_id"`
	SessionID   string         `json:"session_id"`
	Username    string         `json:"username,omitempty"`
	Correct     int            `json:"correct"`
	Total       int            `json:"total"`
	Percentage  float64        `json:"percentage"`
	Passed      bool           `json:"passed"`
	Forced      bool           `json:"forced"`
	PerCategory map[string]int `json:"per_category"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

type EventPublisher interface {
	PublishAttemptGraded(ctx context.Context, event GradedEvent) error
}

type ServiceOptions struct {
	Logger    *zap.Logger
	Observer  Observer
	Publisher EventPublisher
	Clock     func() time.Time
	Rand      *rand.Rand
}

type Service struct {
	store    QuestionStore
	sessions SessionStore
	results  ResultRepository
	settings Settings

	logger    *zap.Logger
	observer  Observer
	publisher EventPublisher
	now       func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	locksMu sync.Mutex
	locks   map[string]*sessionLock

	cacheMu          sync.Mutex
	leaderboardCache *leaderboardCache
}

type leaderboardCache struct {
	ordered     []LeaderboardEntry
	indexByUser map[string]int
	// applied holds the attempt ids already counted.
	applied map[string]struct{}
}

func NewService(store QuestionStore, sessions SessionStore, results ResultRepository, settings Settings, opts ServiceOptions) *Service {
	if settings.Duration <= 0 {
		settings.Duration = DefaultDuration
	}
	if settings.Separator == "" {
		settings.Separator = DefaultSeparator
	}
	if len(settings.Quotas) == 0 {
		settings.Quotas = DefaultQuotas()
	}

	s := &Service{
		store:     store,
		sessions:  sessions,
		results:   results,
		settings:  settings,
		logger:    opts.Logger,
		observer:  opts.Observer,
		publisher: opts.Publisher,
		now:       opts.Clock,
		rand:      opts.Rand,
		locks:     make(map[string]*sessionLock),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

func (s *Service) Settings() Settings {
	return s.settings
}

type View struct {
	SessionID string        `json:"session_id"`
	AttemptID string        `json:"attempt_id"`
	Version   string        `json:"version"`
	Username  string        `json:"username,omitempty"`
	Inputs    []Input       `json:"inputs"`
	Timer     TimerState    `json:"timer"`
	Remaining time.Duration `json:"remaining"`
	Duration  time.Duration `json:"duration"`
	Submitted bool          `json:"submitted"`
	Forced    bool          `json:"forced"`
	Report    *Report       `json:"report,omitempty"`
}

// Current returns the session's attempt, creating one on first access. Every
// call polls the timer, so an expired attempt is graded here even if the user
// never submits.
func (s *Service) Current(ctx context.Context, sessionID string) (View, error) {
	sessionID, err := normalizeSessionID(sessionID)
	if err != nil {
		return View{}, err
	}
	unlock := s.lockSession(sessionID)
	defer unlock()

	attempt, err := s.loadOrBegin(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	now := s.now()
	if attempt.Poll(now) {
		s.finalize(ctx, sessionID, attempt)
		if err := s.sessions.Save(ctx, sessionID, attempt); err != nil {
			return View{}, err
		}
	}
	return s.view(sessionID, attempt, now), nil
}

// Dispatch applies one user interaction to the session's attempt and returns
// the view to render next.
func (s *Service) Dispatch(ctx context.Context, sessionID string, msg Message) (View, error) {
	sessionID, err := normalizeSessionID(sessionID)
	if err != nil {
		return View{}, err
	}
	unlock := s.lockSession(sessionID)
	defer unlock()

	if _, ok := msg.(RestartAttempt); ok {
		return s.restart(ctx, sessionID)
	}

	attempt, err := s.loadOrBegin(ctx, sessionID)
	if err != nil {
		return View{}, err
	}

	now := s.now()
	if attempt.Poll(now) {
		s.finalize(ctx, sessionID, attempt)
		if err := s.sessions.Save(ctx, sessionID, attempt); err != nil {
			return View{}, err
		}
		if _, ok := msg.(SetUsername); !ok {
			return s.view(sessionID, attempt, now), ErrAttemptSubmitted
		}
	}

	switch m := msg.(type) {
	case SubmitAttempt:
		if !attempt.Submit(now) {
			return s.view(sessionID, attempt, now), ErrAttemptSubmitted
		}
		s.finalize(ctx, sessionID, attempt)
	case SetUsername:
		attempt.SetUsername(normalizeUsername(m.Username))
	default:
		if err := attempt.Apply(msg); err != nil {
			return s.view(sessionID, attempt, now), err
		}
	}

	if err := s.sessions.Save(ctx, sessionID, attempt); err != nil {
		return View{}, err
	}
	return s.view(sessionID, attempt, now), nil
}

func (s *Service) Submit(ctx context.Context, sessionID string) (View, error) {
	return s.Dispatch(ctx, sessionID, SubmitAttempt{})
}

func (s *Service) Restart(ctx context.Context, sessionID string) (View, error) {
	return s.Dispatch(ctx, sessionID, RestartAttempt{})
}

// Result returns the report of a submitted attempt.
func (s *Service) Result(ctx context.Context, sessionID string) (Report, error) {
	view, err := s.Current(ctx, sessionID)
	if err != nil {
		return Report{}, err
	}
	if view.Report == nil {
		return Report{}, ErrAttemptRunning
	}
	return *view.Report, nil
}

func (s *Service) History(ctx context.Context, username string, limit int) ([]ResultRecord, error) {
	if s.results == nil {
		return []ResultRecord{}, nil
	}
	return s.results.ListUserResults(ctx, normalizeUsername(username), limit)
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.leaderboardCache == nil {
		var records []ResultRecord
		if s.results != nil {
			var err error
			records, err = s.results.ListResults(ctx)
			if err != nil {
				return nil, err
			}
		}
		s.setCachedLeaderboard(buildLeaderboard(records), records)
	}

	entries := applyLeaderboardLimit(s.leaderboardCache.ordered, limit)
	return append([]LeaderboardEntry(nil), entries...), nil
}

func (s *Service) restart(ctx context.Context, sessionID string) (View, error) {
	username := ""
	previous, err := s.sessions.Load(ctx, sessionID)
	switch {
	case err == nil:
		username = previous.Username()
	case !errors.Is(err, ErrSessionNotFound):
		return View{}, err
	}

	// The old attempt stays in place until a new one could be drawn.
	attempt, err := s.begin(ctx)
	if err != nil {
		return View{}, err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return View{}, err
	}
	attempt.SetUsername(username)
	if err := s.sessions.Save(ctx, sessionID, attempt); err != nil {
		return View{}, err
	}

	s.logger.Info("attempt restarted",
		zap.String("session", sessionID),
		zap.String("attempt", attempt.ID()),
	)
	return s.view(sessionID, attempt, s.now()), nil
}

func (s *Service) loadOrBegin(ctx context.Context, sessionID string) (*Attempt, error) {
	attempt, err := s.sessions.Load(ctx, sessionID)
	if err == nil {
		return attempt, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	attempt, err = s.begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sessionID, attempt); err != nil {
		return nil, err
	}
	s.logger.Info("attempt started",
		zap.String("session", sessionID),
		zap.String("attempt", attempt.ID()),
		zap.Int("questions", attempt.Len()),
	)
	return attempt, nil
}

// begin fetches the pool and draws a fresh sample. It never builds an attempt
// from an empty pool.
func (s *Service) begin(ctx context.Context) (*Attempt, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	records, err := s.store.FetchQuestions(ctx, "", 0)
	if err != nil {
		s.observer.StoreFailed()
		s.logger.Warn("question store fetch failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pool, rejected := PreparePool(records, s.settings.Separator)
	for _, rejection := range rejected {
		s.logger.Warn("question skipped",
			zap.String("question", rejection.Text),
			zap.String("reason", rejection.Reason),
		)
	}
	if len(pool) == 0 {
		s.observer.StoreFailed()
		return nil, fmt.Errorf("%w: no usable questions", ErrStoreUnavailable)
	}

	s.randMu.Lock()
	sample, err := Sample(pool, s.settings.Quotas, SampleOptions{
		Rand:    s.rand,
		Shuffle: s.settings.Shuffle,
		Strict:  s.settings.Strict,
	})
	s.randMu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(sample) == 0 {
		s.observer.StoreFailed()
		return nil, fmt.Errorf("%w: no questions in the configured categories", ErrStoreUnavailable)
	}

	s.observer.AttemptStarted()
	return NewAttempt(sample, s.settings.Quotas, s.now(), s.settings.Duration), nil
}

// finalize runs once per attempt, right after it flips to submitted. Failures
// to record or publish are logged and do not undo the submission.
func (s *Service) finalize(ctx context.Context, sessionID string, attempt *Attempt) {
	report := s.report(attempt)
	record := ResultRecord{
		AttemptID:   attempt.ID(),
		Username:    attempt.Username(),
		Correct:     report.Correct,
		Total:       report.Total,
		Percentage:  report.Percentage,
		Passed:      report.Passed,
		Forced:      attempt.Forced(),
		PerCategory: attempt.Grade().PerCategory,
		SubmittedAt: attempt.SubmittedAt(),
	}

	s.observer.AttemptGraded(attempt.Forced(), report.Percentage)
	s.logger.Info("attempt graded",
		zap.String("session", sessionID),
		zap.String("attempt", attempt.ID()),
		zap.Int("correct", report.Correct),
		zap.Int("total", report.Total),
		zap.Bool("forced", attempt.Forced()),
	)

	if s.results != nil {
		if err := s.results.SaveResult(ctx, record); err != nil {
			s.logger.Error("saving result failed", zap.String("attempt", attempt.ID()), zap.Error(err))
		} else {
			s.updateCachedLeaderboardAfterResult(record)
		}
	}

	if s.publisher != nil {
		event := GradedEvent{
			AttemptID:   record.AttemptID,
			SessionID:   sessionID,
			Username:    record.Username,
			Correct:     record.Correct,
			Total:       record.Total,
			Percentage:  record.Percentage,
			Passed:      record.Passed,
			Forced:      record.Forced,
			PerCategory: record.PerCategory,
			SubmittedAt: record.SubmittedAt,
		}
		if err := s.publisher.PublishAttemptGraded(ctx, event); err != nil {
			s.logger.Warn("publishing graded event failed", zap.String("attempt", attempt.ID()), zap.Error(err))
		}
	}
}

func (s *Service) report(attempt *Attempt) Report {
	report := BuildReport(attempt.Grade(), attempt.Quotas(), s.settings.PassThreshold)
	report.Forced = attempt.Forced()
	return report
}

func (s *Service) view(sessionID string, attempt *Attempt, now time.Time) View {
	view := View{
		SessionID: sessionID,
		AttemptID: attempt.ID(),
		Version:   attempt.Version(),
		Username:  attempt.Username(),
		Inputs:    attempt.Inputs(),
		Timer:     attempt.TimerState(now),
		Remaining: attempt.Timer().Remaining(now),
		Duration:  attempt.Timer().Duration,
		Submitted: attempt.Submitted(),
		Forced:    attempt.Forced(),
	}
	if attempt.Submitted() {
		report := s.report(attempt)
		view.Report = &report
	}
	return view
}

// sessionLock is dropped from the map once nobody holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Service) lockSession(sessionID string) func() {
	s.locksMu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	s.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		s.locksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

func normalizeSessionID(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrInvalidSession
	}
	return sessionID, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type nopObserver struct{}

func (nopObserver) AttemptStarted() {}
func (nopObserver) AttemptGraded(bool, float64) {}
func (nopObserver) StoreFailed() {}
