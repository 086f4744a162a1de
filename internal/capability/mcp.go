package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pairup-labs/pairup/internal/authz"
	"golang.org/x/oauth2"
)

// ErrNoEndpoint indicates no MCP endpoint is configured for the category.
var ErrNoEndpoint = errors.New("no capability endpoint for category")

// Connector discovers remote operations for an authorized room.
type Connector interface {
	Connect(ctx context.Context, roomID, category string, creds authz.Credentials) ([]Entry, io.Closer, error)
}

// MCPConnector speaks Model Context Protocol to category-specific provider
// servers over streamable HTTP, authenticated with the room's bearer token.
type MCPConnector struct {
	endpoints map[string]string // action category -> MCP endpoint URL
	impl      *mcp.Implementation
}

// NewMCPConnector builds a connector from the category endpoint map.
func NewMCPConnector(endpoints map[string]string) *MCPConnector {
	return &MCPConnector{
		endpoints: endpoints,
		impl:      &mcp.Implementation{Name: "pairup", Version: "1.0.0"},
	}
}

// Connect dials the provider's MCP server for the category, lists its tools,
// and returns registry entries whose Invoke calls back into the live session.
// The returned closer owns the session and must be handed to the registry.
func (c *MCPConnector) Connect(ctx context.Context, roomID, category string, creds authz.Credentials) ([]Entry, io.Closer, error) {
	endpoint, ok := c.endpoints[category]
	if !ok || endpoint == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoEndpoint, category)
	}

	httpClient := oauth2.NewClient(ctx, creds.TokenSource())
	transport := &mcp.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: httpClient,
	}

	client := mcp.NewClient(c.impl, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connect capability server %s: %w", category, err)
	}

	listed, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		if closeErr := session.Close(); closeErr != nil {
			slog.Debug("Failed to close MCP session after list failure", "error", closeErr)
		}
		return nil, nil, fmt.Errorf("list capability tools %s: %w", category, err)
	}

	entries := make([]Entry, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		name := tool.Name
		entries = append(entries, Entry{
			Name:        name,
			Description: tool.Description,
			InputSchema: schema,
			Scope:       roomID,
			Invoke: func(ctx context.Context, args map[string]any) (string, error) {
				return callTool(ctx, session, name, args)
			},
		})
	}
	slog.Info("Capability server connected", "room_id", roomID, "category", category, "tools", len(entries))
	return entries, session, nil
}

func callTool(ctx context.Context, session *mcp.ClientSession, name string, args map[string]any) (string, error) {
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}
	var b strings.Builder
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	if res.IsError {
		return "", fmt.Errorf("tool %s reported error: %s", name, b.String())
	}
	return b.String(), nil
}
