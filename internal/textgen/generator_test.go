package textgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProvidersRegistered(t *testing.T) {
	names := Providers()
	for _, want := range []string{"anthropic", "gemini", "grpc", "openai"} {
		require.Contains(t, names, want)
	}

	reg, ok := Lookup("Gemini")
	require.True(t, ok)
	require.Equal(t, "gemini-3-flash-preview", reg.DefaultModel)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("palm", Settings{})
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewDoesNotValidateKey(t *testing.T) {
	g, err := New("openai", Settings{})
	require.NoError(t, err)
	require.NotNil(t, g)

	g, err = New("gemini", Settings{})
	require.NoError(t, err)
	require.NoError(t, Close(g))
}

func TestNewFillsDefaultModel(t *testing.T) {
	var seen Settings
	RegisterProvider("test-default-model", Registration{
		DefaultModel: "model-x",
		Constructor: func(s Settings) (Generator, error) {
			seen = s
			return Func(func(context.Context, Request) (*Response, error) { return nil, nil }), nil
		},
	})
	t.Cleanup(func() { delete(registry, "test-default-model") })

	_, err := New("test-default-model", Settings{})
	require.NoError(t, err)
	require.Equal(t, "model-x", seen.Model)
}

func TestWithTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, _ Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := WithTimeout(slow, 20*time.Millisecond).Generate(context.Background(), Request{Prompt: "x"})
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestNonEmpty(t *testing.T) {
	_, err := nonEmpty(" \n\t", "m")
	require.ErrorIs(t, err, ErrEmptyResponse)

	resp, err := nonEmpty("ok", "m")
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text)
}
