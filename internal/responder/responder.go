// Package responder is the boundary to the external conversational service.
// The orchestrator hands it a prompt, history, and the current capability
// declarations, and receives finalized text back; tool invocations requested
// by the service are applied through the supplied invoker before the reply is
// finalized.
package responder

import (
	"context"
	"encoding/json"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDecl declares one invocable capability to the responder.
type ToolDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolInvoker executes a capability on behalf of the responder.
type ToolInvoker func(ctx context.Context, name string, args map[string]any) (string, error)

// Request is one responder invocation.
type Request struct {
	RoomID        string
	ParticipantID string
	Message       string
	SystemNote    string
	History       []Turn
	Tools         []ToolDecl
	InvokeTool    ToolInvoker
}

// Reply is a finalized responder reply.
type Reply struct {
	Text      string
	ToolsUsed []string
}

// Responder generates replies to participant messages.
type Responder interface {
	Reply(ctx context.Context, req Request) (*Reply, error)
	Close() error
}
