package release

// Level is the severity of an operational alert.
type Level string

// Alert levels understood by every sink.
const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Action is a link button attached to push notifications.
type Action struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	URL    string `json:"url"`
}

// ViewAction builds a "view" action.
func ViewAction(label, url string) Action {
	return Action{Action: "view", Label: label, URL: url}
}

// Alert is one operational event.
type Alert struct {
	Level   Level
	Message string
	// Announce additionally sends the alert to the public push topic.
	Announce bool
	// Silent keeps the alert in the local log only.
	Silent  bool
	Actions []Action
}
