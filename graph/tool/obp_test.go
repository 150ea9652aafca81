package tool

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOBPToolCall(t *testing.T) {
	t.Run("GET request with auth header", func(t *testing.T) {
		var gotAuth, gotPath, gotMethod string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			gotMethod = r.Method
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"banks":[]}`))
		}))
		defer server.Close()

		obp := NewOBPTool(server.URL, "secret-token")
		result, err := obp.Call(context.Background(), map[string]interface{}{
			"method": "GET",
			"path":   "/obp/v5.1.0/banks",
		})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}

		if gotMethod != "GET" {
			t.Errorf("expected GET, got %s", gotMethod)
		}
		if gotPath != "/obp/v5.1.0/banks" {
			t.Errorf("unexpected path: %s", gotPath)
		}
		if gotAuth != `DirectLogin token="secret-token"` {
			t.Errorf("unexpected auth header: %s", gotAuth)
		}
		if result["status_code"] != http.StatusOK {
			t.Errorf("expected status 200, got %v", result["status_code"])
		}
		if result["body"] != `{"banks":[]}` {
			t.Errorf("unexpected body: %v", result["body"])
		}
	})

	t.Run("POST request forwards body", func(t *testing.T) {
		var gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		obp := NewOBPTool(server.URL, "")
		result, err := obp.Call(context.Background(), map[string]interface{}{
			"method": "POST",
			"path":   "obp/v5.1.0/banks/b1/accounts",
			"body":   `{"label":"savings"}`,
		})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}

		if gotBody != `{"label":"savings"}` {
			t.Errorf("unexpected forwarded body: %s", gotBody)
		}
		if result["status_code"] != http.StatusCreated {
			t.Errorf("expected status 201, got %v", result["status_code"])
		}
	})

	t.Run("rejects missing path", func(t *testing.T) {
		obp := NewOBPTool("http://localhost", "")
		if _, err := obp.Call(context.Background(), map[string]interface{}{"method": "GET"}); err == nil {
			t.Error("expected error for missing path")
		}
	})

	t.Run("rejects unsupported method", func(t *testing.T) {
		obp := NewOBPTool("http://localhost", "")
		_, err := obp.Call(context.Background(), map[string]interface{}{
			"method": "PATCH",
			"path":   "/obp/v5.1.0/banks",
		})
		if err == nil {
			t.Error("expected error for unsupported method")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		obp := NewOBPTool(server.URL, "")
		_, err := obp.Call(ctx, map[string]interface{}{
			"method": "GET",
			"path":   "/obp/v5.1.0/banks",
		})
		if err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestOBPToolSpec(t *testing.T) {
	obp := NewOBPTool("http://localhost", "")

	if obp.Name() != "obp_requests" {
		t.Errorf("unexpected name: %q", obp.Name())
	}

	spec := obp.Spec()
	if spec.Name != "obp_requests" {
		t.Errorf("unexpected spec name: %q", spec.Name)
	}

	props, ok := spec.Schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("expected schema properties")
	}
	for _, field := range []string{"method", "path", "body"} {
		if _, ok := props[field]; !ok {
			t.Errorf("expected schema property %q", field)
		}
	}
}
