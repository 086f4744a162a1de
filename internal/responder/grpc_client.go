package responder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

const replyMethod = "/pairup.responder.v1.Responder/Reply"

// maxToolRounds bounds the tool-call loop so a misbehaving responder cannot
// spin forever.
const maxToolRounds = 4

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errTooManyToolRounds        = errors.New("responder exceeded tool round limit")
)

// GrpcClient talks to the responder service over gRPC with a struct-based
// contract, so this process carries no generated stubs for it.
type GrpcClient struct {
	conn   *grpc.ClientConn
	addr   string
	logger *slog.Logger
}

// GrpcClientConfig holds connection settings for the responder service.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcClientConfig returns default configuration.
func DefaultGrpcClientConfig() GrpcClientConfig {
	return GrpcClientConfig{
		Address:          "localhost:50051",
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   60 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// NewGrpcClient connects to the responder service, failing fast when the
// endpoint is not ready.
func NewGrpcClient(addr string, logger *slog.Logger) (*GrpcClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := DefaultGrpcClientConfig()
	if addr != "" {
		cfg.Address = addr
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to responder at %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("responder at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to responder service", "address", cfg.Address)
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

// Reply sends the request and drives the tool-call loop until the responder
// finalizes a text reply.
func (c *GrpcClient) Reply(ctx context.Context, req Request) (*Reply, error) {
	payload := map[string]any{
		"room_id":        req.RoomID,
		"participant_id": req.ParticipantID,
		"message":        req.Message,
		"system_note":    req.SystemNote,
		"history":        turnsToAny(req.History),
		"tools":          toolsToAny(req.Tools),
	}

	used := []string{}
	for round := 0; round <= maxToolRounds; round++ {
		in, err := structpb.NewStruct(payload)
		if err != nil {
			return nil, fmt.Errorf("encode responder request: %w", err)
		}
		out := &structpb.Struct{}
		if err := c.conn.Invoke(ctx, replyMethod, in, out); err != nil {
			return nil, fmt.Errorf("responder reply: %w", err)
		}

		fields := out.AsMap()
		calls, _ := fields["tool_calls"].([]any)
		if len(calls) == 0 {
			text, _ := fields["text"].(string)
			return &Reply{Text: text, ToolsUsed: used}, nil
		}

		results, names, err := c.runToolCalls(ctx, req, calls)
		if err != nil {
			return nil, err
		}
		used = append(used, names...)
		payload["tool_results"] = results
	}
	return nil, errTooManyToolRounds
}

func (c *GrpcClient) runToolCalls(ctx context.Context, req Request, calls []any) ([]any, []string, error) {
	if req.InvokeTool == nil {
		return nil, nil, errors.New("responder requested tools but no invoker is available")
	}
	var results []any
	var names []string
	for _, raw := range calls {
		call, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := call["name"].(string)
		args, _ := call["arguments"].(map[string]any)

		c.logger.Info("Responder tool call", "room_id", req.RoomID, "tool", name)
		output, err := req.InvokeTool(ctx, name, args)
		if err != nil {
			// Feed the failure back instead of aborting; the responder
			// decides how to degrade.
			output = "error: " + err.Error()
			c.logger.Warn("Tool invocation failed", "tool", name, "error", err)
		}
		names = append(names, name)
		results = append(results, map[string]any{"name": name, "output": output})
	}
	return results, names, nil
}

// Close releases the client connection.
func (c *GrpcClient) Close() error {
	return c.conn.Close()
}

func turnsToAny(turns []Turn) []any {
	out := make([]any, 0, len(turns))
	for _, t := range turns {
		out = append(out, map[string]any{"role": t.Role, "content": t.Content})
	}
	return out
}

func toolsToAny(tools []ToolDecl) []any {
	out := make([]any, 0, len(tools))
	for _, t := range tools {
		var schema any
		if len(t.InputSchema) > 0 {
			if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
				schema = map[string]any{"type": "object"}
			}
		}
		out = append(out, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": schema,
		})
	}
	return out
}

// Ensure GrpcClient implements Responder.
var _ Responder = (*GrpcClient)(nil)
