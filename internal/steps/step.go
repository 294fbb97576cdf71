package steps

// Kind identifies what a step does.
type Kind int

const (
	KindOther Kind = iota
	KindCreateFile
	KindRunCommand
)

func (k Kind) String() string {
	switch k {
	case KindCreateFile:
		return "create-file"
	case KindRunCommand:
		return "run-command"
	default:
		return "other"
	}
}

// Status is the application state of a step. It only moves forward.
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
)

func (s Status) String() string {
	if s == StatusCompleted {
		return "completed"
	}
	return "pending"
}

// Step is one directive extracted from backend output.
type Step struct {
	ID          int    `json:"id"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path,omitempty"`
	Code        string `json:"code,omitempty"`
	Status      Status `json:"status"`
}

// Command returns the shell command of a run-command step.
func (s Step) Command() string {
	if s.Kind != KindRunCommand {
		return ""
	}
	return s.Code
}

// Pending reports whether the step still has to be applied.
func (s Step) Pending() bool {
	return s.Status == StatusPending
}

// Complete marks the step as applied.
func (s *Step) Complete() {
	s.Status = StatusCompleted
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
