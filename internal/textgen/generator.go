// Package textgen is the client side of the external text-generation service.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrEmptyResponse is returned when the service answered without any text.
	ErrEmptyResponse = errors.New("textgen: empty response")
	// ErrUnknownProvider is returned by New for unregistered provider names.
	ErrUnknownProvider = errors.New("textgen: unknown provider")
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single prompt with an optional persona/style instruction.
type Request struct {
	Prompt            string `json:"prompt"`
	SystemInstruction string `json:"system_instruction,omitempty"`
}

// Response is the generated text.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (*Response, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Settings configures a provider instance.
type Settings struct {
	APIKey    string
	BaseURL   string
	Model     string
	Address   string
	MaxTokens int
	Timeout   time.Duration
}

// Constructor builds a provider from settings. Constructors must not validate
// credentials; a missing key surfaces as a failed Generate call.
type Constructor func(s Settings) (Generator, error)

// Registration describes a provider.
type Registration struct {
	DefaultModel string
	EnvKey       string
	Constructor  Constructor
}

var registry = map[string]Registration{}

// RegisterProvider makes a provider available to New.
func RegisterProvider(name string, reg Registration) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || reg.Constructor == nil {
		return
	}
	registry[name] = reg
}

// Lookup returns the registration for a provider name.
func Lookup(name string) (Registration, bool) {
	reg, ok := registry[strings.TrimSpace(strings.ToLower(name))]
	return reg, ok
}

// Providers lists registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named provider. An empty model falls back to the provider default.
func New(name string, s Settings) (Generator, error) {
	reg, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(Providers(), ", "))
	}
	if strings.TrimSpace(s.Model) == "" {
		s.Model = reg.DefaultModel
	}
	g, err := reg.Constructor(s)
	if err != nil {
		return nil, fmt.Errorf("build %s provider: %w", name, err)
	}
	if s.Timeout > 0 {
		g = WithTimeout(g, s.Timeout)
	}
	return g, nil
}

// WithTimeout bounds every call to g.
func WithTimeout(g Generator, d time.Duration) Generator {
	return &timeoutGenerator{next: g, timeout: d}
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

func (t *timeoutGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, req)
}

func (t *timeoutGenerator) Close() error {
	return Close(t.next)
}

// Close releases provider resources when the generator holds any.
func Close(g Generator) error {
	if c, ok := g.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func nonEmpty(text, model string) (*Response, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Text: text, Model: model}, nil
}
