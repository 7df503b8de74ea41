package cdp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoveryServer(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/json")
}

func TestDiscoverListsContexts(t *testing.T) {
	client := discoveryServer(t, http.StatusOK, `[
		{"title":"SharedJSContext","webSocketDebuggerUrl":"ws://localhost:8080/devtools/page/a1"},
		{"title":"Steam Big Picture Mode","webSocketDebuggerUrl":"ws://localhost:8080/devtools/page/b2"}
	]`)

	contexts, err := client.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, contexts, 2)
	assert.Equal(t, "SharedJSContext", contexts[0].Title)
	assert.Equal(t, "ws://localhost:8080/devtools/page/a1", contexts[0].WebSocketDebuggerURL)
}

func TestDiscoverFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"empty context list", http.StatusOK, `[]`, "no debuggable contexts listed"},
		{"non-JSON body", http.StatusOK, `<html>debugger moved</html>`, "decoding context list"},
		{"unexpected status", http.StatusInternalServerError, ``, "unexpected status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := discoveryServer(t, tt.status, tt.body)

			contexts, err := client.Discover(context.Background())
			require.Error(t, err)
			assert.Nil(t, contexts)

			var derr *DiscoveryError
			require.ErrorAs(t, err, &derr)
			assert.Contains(t, derr.Error(), tt.want)
			assert.Contains(t, derr.URL, "/json")
		})
	}
}

func TestDiscoverUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/json"
	srv.Close()

	client := NewClient(url)
	_, err := client.Discover(context.Background())

	var derr *DiscoveryError
	require.ErrorAs(t, err, &derr)
}

func TestFindContext(t *testing.T) {
	contexts := []Context{
		{Title: "Steam", WebSocketDebuggerURL: "ws://localhost:8080/devtools/page/a1"},
		{Title: "SharedJSContext", WebSocketDebuggerURL: "ws://localhost:8080/devtools/page/b2"},
	}

	t.Run("exact title match", func(t *testing.T) {
		found, err := FindContext(contexts, "SharedJSContext")
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:8080/devtools/page/b2", found.WebSocketDebuggerURL)
	})

	t.Run("match is case sensitive", func(t *testing.T) {
		_, err := FindContext(contexts, "sharedjscontext")
		require.Error(t, err)
	})

	t.Run("miss reports every available title", func(t *testing.T) {
		_, err := FindContext(contexts, "Library")

		var nferr *ContextNotFoundError
		require.ErrorAs(t, err, &nferr)
		assert.Equal(t, "Library", nferr.Title)
		assert.Equal(t, []string{"Steam", "SharedJSContext"}, nferr.Available)
		assert.Contains(t, err.Error(), "SharedJSContext")
	})
}
