package verify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
)

// DefaultEndpointPath is appended to the base URL to reach the MCP endpoint.
const DefaultEndpointPath = "/mcp"

// MCPBackend lists tools over the streamable HTTP MCP transport,
// authenticating with the API key as a bearer token.
type MCPBackend struct {
	// Timeout bounds a single attempt, including the handshake.
	Timeout time.Duration
	// EndpointPath defaults to DefaultEndpointPath.
	EndpointPath string
	// Transport is the underlying round tripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// ListTools connects, lists every tool name in server order and disconnects.
func (b *MCPBackend) ListTools(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	endpoint := b.endpoint(baseURL)
	logging.Debug("Connecting to MCP server", zap.String("endpoint", endpoint))

	base := b.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := &mcp.StreamableClientTransport{
		Endpoint: endpoint,
		HTTPClient: &http.Client{
			Transport: &bearerTransport{token: apiKey, base: base},
		},
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "onboard-verifier",
		Title:   "Onboard Verification Client",
		Version: config.Version,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logging.Debug("Error closing verification session", zap.Error(err))
		}
	}()

	var names []string
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		if tool.Name == "" {
			continue
		}
		names = append(names, tool.Name)
	}

	if len(names) == 0 {
		return nil, ErrNoTools
	}
	return names, nil
}

func (b *MCPBackend) endpoint(baseURL string) string {
	path := b.EndpointPath
	if path == "" {
		path = DefaultEndpointPath
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}
