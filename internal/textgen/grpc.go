package textgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service of the sidecar contract.
const ServiceName = "genomicsxai.textgen.v1.TextGeneration"

const generateMethod = "/" + ServiceName + "/Generate"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

func init() {
	RegisterProvider("grpc", Registration{
		Constructor: func(s Settings) (Generator, error) {
			return NewGrpcClient(GrpcClientConfig{Address: s.Address}, nil)
		},
	})
}

// GrpcClientConfig holds configuration for the sidecar client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	DialOptions      []grpc.DialOption
}

// DefaultGrpcClientConfig returns default configuration.
func DefaultGrpcClientConfig() GrpcClientConfig {
	return GrpcClientConfig{
		Address:          "localhost:50051",
		ConnectTimeout:   5 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GrpcClient talks to a text-generation sidecar.
type GrpcClient struct {
	conn   *grpc.ClientConn
	addr   string
	logger *slog.Logger
}

// NewGrpcClient connects to the sidecar and waits until the channel is ready.
func NewGrpcClient(cfg GrpcClientConfig, logger *slog.Logger) (*GrpcClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultGrpcClientConfig()
	if cfg.Address == "" {
		cfg.Address = def.Address
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.KeepaliveTime <= 0 {
		cfg.KeepaliveTime = def.KeepaliveTime
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = def.KeepaliveTimeout
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}),
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("textgen sidecar at %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("textgen sidecar at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to text-generation sidecar", "address", cfg.Address)
	return &GrpcClient{conn: conn, addr: cfg.Address, logger: logger}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Generate performs the unary Generate call.
func (c *GrpcClient) Generate(ctx context.Context, req Request) (*Response, error) {
	in, err := structpb.NewStruct(map[string]any{
		"prompt":             req.Prompt,
		"system_instruction": req.SystemInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, generateMethod, in, out); err != nil {
		c.logger.Warn("Generate call failed", "address", c.addr, "error", err)
		return nil, fmt.Errorf("generate request failed: %w", err)
	}

	fields := out.GetFields()
	return nonEmpty(fields["text"].GetStringValue(), fields["model"].GetStringValue())
}

// Close closes the connection.
func (c *GrpcClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// sidecarServer is the handler type registered with grpc.Server.
type sidecarServer interface {
	generate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type generatorServer struct {
	gen    Generator
	logger *slog.Logger
}

func (s *generatorServer) generate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	req := Request{
		Prompt:            fields["prompt"].GetStringValue(),
		SystemInstruction: fields["system_instruction"].GetStringValue(),
	}
	if req.Prompt == "" {
		return nil, status.Error(codes.InvalidArgument, "prompt is required")
	}

	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("sidecar generate failed", "error", err)
		if errors.Is(err, ErrEmptyResponse) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Unavailable, "text generation unavailable")
	}
	return structpb.NewStruct(map[string]any{
		"text":  resp.Text,
		"model": resp.Model,
	})
}

func generateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(sidecarServer).generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: generateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(sidecarServer).generate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*sidecarServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: generateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "textgen.proto",
}

// RegisterServer exposes gen on s under the sidecar contract.
func RegisterServer(s grpc.ServiceRegistrar, gen Generator, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.RegisterService(&serviceDesc, &generatorServer{gen: gen, logger: logger})
}
