package textgen

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func startSidecar(t *testing.T, gen Generator) *GrpcClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterServer(srv, gen, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := NewGrpcClient(GrpcClientConfig{
		Address:        "passthrough:///bufnet",
		ConnectTimeout: 2 * time.Second,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGrpcRoundTrip(t *testing.T) {
	var got Request
	client := startSidecar(t, Func(func(_ context.Context, req Request) (*Response, error) {
		got = req
		return &Response{Text: "TP53 is a tumour suppressor.", Model: "stub"}, nil
	}))

	resp, err := client.Generate(context.Background(), Request{
		Prompt:            "Explain TP53",
		SystemInstruction: "Be terse.",
	})
	require.NoError(t, err)
	require.Equal(t, "TP53 is a tumour suppressor.", resp.Text)
	require.Equal(t, "stub", resp.Model)
	require.Equal(t, "Explain TP53", got.Prompt)
	require.Equal(t, "Be terse.", got.SystemInstruction)
}

func TestGrpcPropagatesFailure(t *testing.T) {
	client := startSidecar(t, Func(func(context.Context, Request) (*Response, error) {
		return nil, errors.New("upstream 401: invalid key")
	}))

	_, err := client.Generate(context.Background(), Request{Prompt: "hello"})
	require.Error(t, err)
	require.NotContains(t, err.Error(), "invalid key")
}

func TestGrpcRejectsEmptyPrompt(t *testing.T) {
	client := startSidecar(t, Func(func(context.Context, Request) (*Response, error) {
		t.Error("generator should not be called")
		return nil, nil
	}))

	_, err := client.Generate(context.Background(), Request{})
	require.Error(t, err)
}

func TestGrpcEmptyText(t *testing.T) {
	client := startSidecar(t, Func(func(context.Context, Request) (*Response, error) {
		return &Response{Text: "   "}, nil
	}))

	_, err := client.Generate(context.Background(), Request{Prompt: "hello"})
	require.ErrorIs(t, err, ErrEmptyResponse)
}
