package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// Pipeline phases reported over the progress stream
type PipelinePhase string

const (
	PhaseStaging    PipelinePhase = "staging"
	PhasePersisting PipelinePhase = "persisting"
	PhaseNotifying  PipelinePhase = "notifying"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage reports staging progress for one session
type WSProgressMessage struct {
	Type        string        `json:"type"`
	SessionID   string        `json:"sessionId"`
	Progress    int           `json:"progress"`
	Phase       PipelinePhase `json:"phase"`
	CurrentStep string        `json:"currentStep,omitempty"`
}

// WSCompleteMessage carries the persisted record
type WSCompleteMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Result    interface{} `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"sessionId"`
	Error     WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
