package panel

// View is the panel's main view. Exactly one is active.
type View string

const (
	ViewInitial View = "initial"
	ViewLoading View = "loading"
	ViewResult  View = "result"
	ViewError   View = "error"
)

// ResultKind tells what a result holds.
type ResultKind string

const (
	ResultSummary    ResultKind = "summary"
	ResultTranscript ResultKind = "transcript"
)

// State is a snapshot of the panel. Observers always receive copies.
type State struct {
	View   View       `json:"view"`
	Status string     `json:"status,omitempty"`
	Kind   ResultKind `json:"kind,omitempty"`
	Raw    string     `json:"raw,omitempty"`
	HTML   string     `json:"html,omitempty"`
	Error  string     `json:"error,omitempty"`

	SettingsOpen bool   `json:"settingsOpen"`
	HasAPIKey    bool   `json:"hasApiKey"`
	Model        string `json:"model"`
	// Models and ModelsMessage hold the last model check, cleared when the
	// settings panel is toggled.
	Models        []string `json:"models,omitempty"`
	ModelsMessage string   `json:"modelsMessage,omitempty"`

	RunID string `json:"runId,omitempty"`
	Busy  bool   `json:"busy"`
}

func (s State) clone() State {
	if s.Models != nil {
		s.Models = append([]string(nil), s.Models...)
	}
	return s
}
