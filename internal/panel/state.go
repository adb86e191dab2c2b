// Package panel implements the request/response state machine shared by every
// AI-backed dashboard panel.
package panel

import (
	"fmt"
	"time"
)

// UnavailableMessage is the only failure text a panel ever shows.
const UnavailableMessage = "AI service unavailable."

// Status is the lifecycle position of a panel.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

var statusNames = [...]string{
	StatusIdle:    "idle",
	StatusLoading: "loading",
	StatusReady:   "ready",
	StatusFailed:  "failed",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("panel: unknown status %q", b)
}

// Request is what a panel asks the text generator.
type Request struct {
	// Subject names the selected entity (gene, cluster) or holds the chat message.
	Subject           string
	Prompt            string
	SystemInstruction string
}

// State is a point-in-time view of a panel. Result and Error are mutually
// exclusive; Sections is set only for two-part panels.
type State struct {
	Panel     string    `json:"panel"`
	Status    Status    `json:"status"`
	Seq       uint64    `json:"seq"`
	Subject   string    `json:"subject,omitempty"`
	Result    string    `json:"result,omitempty"`
	Sections  *Sections `json:"sections,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settled reports whether the state is terminal for its request.
func (s State) Settled() bool {
	return s.Status == StatusReady || s.Status == StatusFailed
}

// Outcome is a shaped model response.
type Outcome struct {
	Text     string
	Sections *Sections
}

// Shaper turns raw model text into what the panel displays.
type Shaper func(raw string) Outcome

// PlainText cleans the response into a single block.
func PlainText(raw string) Outcome {
	return Outcome{Text: Clean(raw)}
}

// TwoPart splits the response into evidence and inference sections.
func TwoPart(raw string) Outcome {
	s := SplitSections(raw)
	return Outcome{Text: s.Text(), Sections: &s}
}

// Phase labels a request lifecycle event for tracing.
type Phase string

const (
	PhaseSubmitted Phase = "submitted"
	PhaseReady     Phase = "ready"
	PhaseFailed    Phase = "failed"
	PhaseDiscarded Phase = "discarded"
	PhaseReset     Phase = "reset"
)

// Trace describes one lifecycle event of a panel request.
type Trace struct {
	Panel       string
	Seq         uint64
	RequestID   string
	Phase       Phase
	Subject     string
	PromptChars int
	ResultChars int
	Latency     time.Duration
	Err         error
}
