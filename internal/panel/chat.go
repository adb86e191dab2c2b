package panel

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/genomics-xai/internal/textgen"
)

var (
	// ErrEmptyMessage is returned when a chat message is blank.
	ErrEmptyMessage = errors.New("message is required")
	// ErrBusy is returned when a chat reply is still being generated.
	ErrBusy = errors.New("a reply is still being generated")
)

// Speaker identifies who wrote a transcript entry.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one transcript entry.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// ChatConfig describes the assistant persona.
type ChatConfig struct {
	Greeting          string
	SystemInstruction string
}

// Chat is an append-only conversation backed by a single panel. Only one
// reply may be pending at a time.
type Chat struct {
	cfg   ChatConfig
	panel *Controller

	mu       sync.Mutex
	turns    []Turn
	pending  bool
	onChange func([]Turn)
}

// NewChat creates a chat seeded with the greeting. Controller options are
// applied to the underlying panel; onChange, when non-nil, receives a copy of
// the transcript after every append. onChange runs with the chat locked and
// must not call back into the chat.
func NewChat(name string, cfg ChatConfig, gen textgen.Generator, onChange func([]Turn), opts ...Option) *Chat {
	ch := &Chat{
		cfg:      cfg,
		onChange: onChange,
		turns:    []Turn{{Speaker: SpeakerAssistant, Text: cfg.Greeting, At: time.Now()}},
	}
	opts = append(opts, WithSettle(ch.settled))
	ch.panel = New(name, gen, opts...)
	return ch
}

// Panel returns the controller behind the chat.
func (ch *Chat) Panel() *Controller {
	return ch.panel
}

// Send appends the user's message and requests a reply.
func (ch *Chat) Send(message string) (uint64, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return 0, ErrEmptyMessage
	}

	ch.mu.Lock()
	if ch.pending {
		ch.mu.Unlock()
		return 0, ErrBusy
	}
	ch.pending = true
	ch.turns = append(ch.turns, Turn{Speaker: SpeakerUser, Text: message, At: time.Now()})
	ch.changedLocked()
	seq := ch.panel.Submit(Request{
		Subject:           message,
		Prompt:            message,
		SystemInstruction: ch.cfg.SystemInstruction,
	})
	ch.mu.Unlock()
	return seq, nil
}

// Transcript returns a copy of the conversation.
func (ch *Chat) Transcript() []Turn {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.copyLocked()
}

// Pending reports whether a reply is outstanding.
func (ch *Chat) Pending() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.pending
}

func (ch *Chat) settled(s State) {
	text := s.Result
	if s.Status == StatusFailed {
		text = s.Error
	}

	ch.mu.Lock()
	ch.turns = append(ch.turns, Turn{Speaker: SpeakerAssistant, Text: text, At: s.UpdatedAt})
	ch.pending = false
	ch.changedLocked()
	ch.mu.Unlock()
}

func (ch *Chat) copyLocked() []Turn {
	out := make([]Turn, len(ch.turns))
	copy(out, ch.turns)
	return out
}

func (ch *Chat) changedLocked() {
	if ch.onChange != nil {
		ch.onChange(ch.copyLocked())
	}
}
