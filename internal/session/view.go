package session

// ConnectionStatus is the connection banner state.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

// String returns the string representation of ConnectionStatus.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Banner returns the text shown for the status.
func (s ConnectionStatus) Banner() string {
	switch s {
	case StatusConnecting:
		return "Connecting to backend... (Please wait)"
	case StatusConnected:
		return "Connected to backend."
	case StatusFailed:
		return "Backend connection failed or disconnected. Please ensure the backend server is running."
	default:
		return "Not connected to backend. Waiting for a connection..."
	}
}

// InputMode is what the user may do next.
type InputMode int

const (
	// InputWaiting: no input until the backend is connected.
	InputWaiting InputMode = iota
	// InputText: free text.
	InputText
	// InputOptions: pick one of View.Options.
	InputOptions
)

// String returns the string representation of InputMode.
func (m InputMode) String() string {
	switch m {
	case InputText:
		return "text"
	case InputOptions:
		return "options"
	default:
		return "waiting"
	}
}

// View is an immutable snapshot of what one cycle renders, in order:
// history, the in-progress answer, options, then the status banner.
type View struct {
	SessionID string
	Messages  []Message
	// Pending is nil unless an answer is arriving.
	Pending *ResponseBuffer
	Options []string
	Status  ConnectionStatus
	// Errors are shown once.
	Errors []string
	Input  InputMode
}
