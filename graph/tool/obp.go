package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tesobe/opey-go/graph/model"
)

// OBPTool executes requests against an Open Bank Project API instance.
//
// This is the agent's sensitive tool: it can read and mutate live banking
// data, so it must be registered with MarkSensitive and gated behind the
// human review interrupt.
//
// Input Parameters:
//   - method: HTTP method ("GET", "POST", "PUT", "DELETE")
//   - path: API path relative to the base URL (e.g. "/obp/v5.1.0/banks")
//   - body: Optional JSON request body (for POST/PUT requests)
//
// Output:
//   - status_code: HTTP status code (e.g., 200, 404)
//   - body: Response body as string
//
// Example usage:
//
//	obp := tool.NewOBPTool("https://api.openbankproject.com", token)
//	result, err := obp.Call(ctx, map[string]interface{}{
//	    "method": "GET",
//	    "path":   "/obp/v5.1.0/my/accounts",
//	})
//	fmt.Printf("Status: %d, Body: %s\n", result["status_code"], result["body"])
type OBPTool struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewOBPTool creates an OBP request tool.
//
// Parameters:
//   - baseURL: Root of the OBP instance (e.g. "https://api.openbankproject.com")
//   - authToken: DirectLogin token attached to every request; empty for
//     anonymous access
func NewOBPTool(baseURL, authToken string) *OBPTool {
	return &OBPTool{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		client:    &http.Client{
			// Timeout handled via context
		},
	}
}

// Name returns the tool identifier.
func (o *OBPTool) Name() string {
	return "obp_requests"
}

// Spec returns the tool specification bound to the LLM.
func (o *OBPTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        "obp_requests",
		Description: "Execute a request against the Open Bank Project API. Use for live banking data; requires user approval.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"method": map[string]interface{}{
					"type":        "string",
					"description": "HTTP method: GET, POST, PUT or DELETE",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "API path, e.g. /obp/v5.1.0/banks",
				},
				"body": map[string]interface{}{
					"type":        "string",
					"description": "JSON request body for POST and PUT requests",
				},
			},
			"required": []string{"method", "path"},
		},
	}
}

// Call executes an OBP API request with the provided parameters.
func (o *OBPTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("path parameter required (string)")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	method := "GET"
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST, PUT, DELETE)", method)
	}

	var body io.Reader
	if bodyStr, ok := input["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if o.authToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf(`DirectLogin token="%s"`, o.authToken))
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return map[string]interface{}{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
	}, nil
}
