package quiz

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Attempt is one user's pass through a sampled quiz. The sample is fixed at
// creation; only the answer messages mutate it, and nothing does once it is
// submitted.
type Attempt struct {
	id          string
	version     string
	username    string
	sample      []Question
	answers     map[string][]string
	quotas      []CategoryQuota
	timer       Timer
	expired     bool
	submitted   bool
	forced      bool
	submittedAt time.Time
}

func NewAttempt(sample []Question, quotas []CategoryQuota, startedAt time.Time, duration time.Duration) *Attempt {
	answers := make(map[string][]string, len(sample))
	for _, question := range sample {
		answers[question.Text] = []string{}
	}

	return &Attempt{
		id:      uuid.NewString(),
		version: uuid.NewString(),
		sample:  sample,
		answers: answers,
		quotas:  append([]CategoryQuota(nil), quotas...),
		timer:   Timer{StartedAt: startedAt, Duration: duration},
	}
}

func (a *Attempt) ID() string { return a.id }
func (a *Attempt) Version() string { return a.version }
func (a *Attempt) Username() string { return a.username }
func (a *Attempt) Submitted() bool { return a.submitted }
func (a *Attempt) Forced() bool { return a.forced }
func (a *Attempt) SubmittedAt() time.Time { return a.submittedAt }
func (a *Attempt) Timer() Timer { return a.timer }
func (a *Attempt) Quotas() []CategoryQuota { return append([]CategoryQuota(nil), a.quotas...) }
func (a *Attempt) Len() int { return len(a.sample) }

func (a *Attempt) Sample() []Question {
	return append([]Question(nil), a.sample...)
}

// Answers returns a copy of the current selections keyed by question text.
func (a *Attempt) Answers() map[string][]string {
	out := make(map[string][]string, len(a.answers))
	for text, selected := range a.answers {
		out[text] = append([]string{}, selected...)
	}
	return out
}

// WidgetKey identifies the input of one question within this attempt, so a
// new attempt never inherits stale widget values.
func (a *Attempt) WidgetKey(index int) string {
	return a.version + "-" + strconv.Itoa(index)
}

func (a *Attempt) TimerState(now time.Time) TimerState {
	if a.expired {
		return TimerExpired
	}
	return a.timer.State(now)
}

// Poll latches timer expiry. It returns true only on the call that forces
// submission of a still-open attempt.
func (a *Attempt) Poll(now time.Time) bool {
	if !a.expired && a.timer.State(now) == TimerExpired {
		a.expired = true
	}
	if a.expired && !a.submitted {
		a.submitted = true
		a.forced = true
		a.submittedAt = now
		return true
	}
	return false
}

// Submit closes the attempt. It returns false if it was already closed.
func (a *Attempt) Submit(now time.Time) bool {
	if a.submitted {
		return false
	}
	a.submitted = true
	a.submittedAt = now
	return true
}

func (a *Attempt) SetUsername(username string) {
	a.username = username
}

func (a *Attempt) Grade() Grading {
	return Grade(a.sample, a.answers)
}

type Input struct {
	Index    int      `json:"index"`
	Key      string   `json:"key"`
	Kind     Kind     `json:"kind"`
	Question Question `json:"question"`
	Selected []string `json:"selected"`
}

// Inputs lists one input per question in sample order.
func (a *Attempt) Inputs() []Input {
	inputs := make([]Input, 0, len(a.sample))
	for idx, question := range a.sample {
		inputs = append(inputs, Input{
			Index:    idx,
			Key:      a.WidgetKey(idx),
			Kind:     question.Kind(),
			Question: question,
			Selected: append([]string{}, a.answers[question.Text]...),
		})
	}
	return inputs
}

func (a *Attempt) selectOption(index int, option string) error {
	question, err := a.lookup(index, option)
	if err != nil {
		return err
	}
	if question.Kind() != KindSingle {
		return ErrWrongInputKind
	}
	a.answers[question.Text] = []string{option}
	return nil
}

func (a *Attempt) toggleOption(index int, option string, on bool) error {
	question, err := a.lookup(index, option)
	if err != nil {
		return err
	}
	if question.Kind() != KindMulti {
		return ErrWrongInputKind
	}

	selected := make(map[string]struct{}, len(question.Choices))
	for _, current := range a.answers[question.Text] {
		selected[current] = struct{}{}
	}
	if on {
		selected[option] = struct{}{}
	} else {
		delete(selected, option)
	}

	ordered := make([]string, 0, len(selected))
	for _, choice := range question.Choices {
		if _, ok := selected[choice]; ok {
			ordered = append(ordered, choice)
		}
	}
	a.answers[question.Text] = ordered
	return nil
}

func (a *Attempt) lookup(index int, option string) (Question, error) {
	if a.submitted {
		return Question{}, ErrAttemptSubmitted
	}
	if index < 0 || index >= len(a.sample) {
		return Question{}, ErrUnknownQuestion
	}
	question := a.sample[index]
	if !question.hasChoice(option) {
		return Question{}, ErrUnknownChoice
	}
	return question, nil
}

type AttemptSnapshot struct {
	ID          string              `json:"id"`
	Version     string              `json:"version"`
	Username    string              `json:"username,omitempty"`
	Sample      []Question          `json:"sample"`
	Answers     map[string][]string `json:"answers"`
	Quotas      []CategoryQuota     `json:"quotas"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
	Expired     bool                `json:"expired"`
	Submitted   bool                `json:"submitted"`
	Forced      bool                `json:"forced"`
	SubmittedAt time.Time           `json:"submitted_at,omitempty"`
}

func (a *Attempt) Snapshot() AttemptSnapshot {
	return AttemptSnapshot{
		ID:          a.id,
		Version:     a.version,
		Username:    a.username,
		Sample:      a.Sample(),
		Answers:     a.Answers(),
		Quotas:      a.Quotas(),
		StartedAt:   a.timer.StartedAt,
		Duration:    a.timer.Duration,
		Expired:     a.expired,
		Submitted:   a.submitted,
		Forced:      a.forced,
		SubmittedAt: a.submittedAt,
	}
}

func RestoreAttempt(s AttemptSnapshot) *Attempt {
	answers := make(map[string][]string, len(s.Sample))
	for _, question := range s.Sample {
		answers[question.Text] = append([]string{}, s.Answers[question.Text]...)
	}

	return &Attempt{
		id:          s.ID,
		version:     s.Version,
		username:    s.Username,
		sample:      append([]Question(nil), s.Sample...),
		answers:     answers,
		quotas:      append([]CategoryQuota(nil), s.Quotas...),
		timer:       Timer{StartedAt: s.StartedAt, Duration: s.Duration},
		expired:     s.Expired,
		submitted:   s.Submitted,
		forced:      s.Forced,
		submittedAt: s.SubmittedAt,
	}
}
