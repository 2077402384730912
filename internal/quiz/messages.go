package quiz

// Message is one user interaction dispatched to a session.
type Message interface {
	isMessage()
}

type SelectOption struct {
	Index  int
	Option string
}

type ToggleOption struct {
	Index  int
	Option string
	On     bool
}

type SubmitAttempt struct{}

type RestartAttempt struct{}

type SetUsername struct {
	Username string
}

func (SelectOption) isMessage() {}
func (ToggleOption) isMessage() {}
func (SubmitAttempt) isMessage() {}
func (RestartAttempt) isMessage() {}
func (SetUsername) isMessage() {}

// Apply runs an answer message against the attempt. Lifecycle messages
// (submit, restart) are handled by the Service.
func (a *Attempt) Apply(msg Message) error {
	switch m := msg.(type) {
	case SelectOption:
		return a.selectOption(m.Index, m.Option)
	case ToggleOption:
		return a.toggleOption(m.Index, m.Option, m.On)
	case SetUsername:
		a.SetUsername(m.Username)
		return nil
	default:
		return ErrUnknownMessage
	}
}
