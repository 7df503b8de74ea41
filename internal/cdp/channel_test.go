package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sentEnvelope is the wire shape a fake debugger decodes from the client.
type sentEnvelope struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params struct {
		Expression   string `json:"expression"`
		UserGesture  bool   `json:"userGesture"`
		AwaitPromise bool   `json:"awaitPromise"`
	} `json:"params"`
}

// fakeDebugger runs script against the first websocket connection and
// closes it when script returns.
func fakeDebugger(t *testing.T, script func(conn *websocket.Conn, env sentEnvelope)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env sentEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return
		}
		script(conn, env)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testChannel(window time.Duration, id int64) *Channel {
	ch := NewChannel(window)
	ch.NextID = func() int64 { return id }
	return ch
}

func TestEvaluateResolvesMatchingResponse(t *testing.T) {
	envc := make(chan sentEnvelope, 1)
	endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
		envc <- env
		reply := fmt.Sprintf(`{"id":%d,"result":{"result":{"type":"undefined"}}}`, env.ID)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
	})

	ch := testChannel(2*time.Second, 42)
	result, err := ch.Evaluate(context.Background(), endpoint, "SteamClient.Browser.RestartJSContext()")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"undefined"}`, string(result))

	env := <-envc
	assert.Equal(t, int64(42), env.ID)
	assert.Equal(t, "Runtime.evaluate", env.Method)
	assert.Equal(t, "SteamClient.Browser.RestartJSContext()", env.Params.Expression)
	assert.True(t, env.Params.UserGesture)
	assert.True(t, env.Params.AwaitPromise)
}

func TestEvaluateIgnoresNoiseBeforeMatch(t *testing.T) {
	endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
		noise := []string{
			`{"method":"Inspector.detached","params":{"reason":"target_closed"}}`,
			`{"id":999,"result":{"result":{"type":"string","value":"stale"}}}`,
		}
		for _, msg := range noise {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
		}
		reply := fmt.Sprintf(`{"id":%d,"result":{"result":{"type":"boolean","value":true}}}`, env.ID)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
	})

	ch := testChannel(2*time.Second, 7)
	result, err := ch.Evaluate(context.Background(), endpoint, "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"boolean","value":true}`, string(result))
}

func TestEvaluateRemoteException(t *testing.T) {
	endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
		reply := fmt.Sprintf(`{"id":%d,"result":{"exceptionDetails":{"text":"Uncaught","exception":{"description":"ReferenceError: SteamClient is not defined"}}}}`, env.ID)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
	})

	ch := testChannel(2*time.Second, 3)
	_, err := ch.Evaluate(context.Background(), endpoint, "SteamClient.Browser.RestartJSContext()")

	var rerr *RemoteExecutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int64(3), rerr.ID)
	assert.Equal(t, "ReferenceError: SteamClient is not defined", rerr.Details)
}

func TestEvaluateTimesOutWithoutResponse(t *testing.T) {
	blocked := make(chan struct{})
	endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
		// Hold the connection open without answering until the client
		// gives up and closes it.
		_, _, _ = conn.ReadMessage()
		close(blocked)
	})

	ch := testChannel(100*time.Millisecond, 5)
	start := time.Now()
	_, err := ch.Evaluate(context.Background(), endpoint, "1")
	elapsed := time.Since(start)

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, int64(5), terr.ID)
	assert.Equal(t, 100*time.Millisecond, terr.Window)
	assert.Less(t, elapsed, 2*time.Second, "timeout must be bounded by the window, not the server")
	<-blocked
}

func TestEvaluateLateResponseDoesNotWin(t *testing.T) {
	endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
		time.Sleep(400 * time.Millisecond)
		reply := fmt.Sprintf(`{"id":%d,"result":{"result":{"type":"undefined"}}}`, env.ID)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
	})

	ch := testChannel(100*time.Millisecond, 6)
	_, err := ch.Evaluate(context.Background(), endpoint, "1")

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
}

func TestEvaluateCleanCloseWithoutOutcome(t *testing.T) {
	endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_, _, _ = conn.ReadMessage()
	})

	ch := testChannel(2*time.Second, 8)
	_, err := ch.Evaluate(context.Background(), endpoint, "1")

	var nrerr *NoResponseError
	require.ErrorAs(t, err, &nrerr)
	assert.Equal(t, int64(8), nrerr.ID)
}

func TestEvaluateTransportFailures(t *testing.T) {
	t.Run("dial refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
		srv.Close()

		ch := testChannel(time.Second, 9)
		_, err := ch.Evaluate(context.Background(), endpoint, "1")

		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "dial", terr.Op)
	})

	t.Run("malformed message body", func(t *testing.T) {
		endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":`))
		})

		ch := testChannel(time.Second, 10)
		_, err := ch.Evaluate(context.Background(), endpoint, "1")

		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "decode", terr.Op)
	})

	t.Run("matched response with no payload", func(t *testing.T) {
		endpoint := fakeDebugger(t, func(conn *websocket.Conn, env sentEnvelope) {
			reply := fmt.Sprintf(`{"id":%d,"result":{}}`, env.ID)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
		})

		ch := testChannel(time.Second, 11)
		_, err := ch.Evaluate(context.Background(), endpoint, "1")

		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "decode", terr.Op)
	})
}

func TestNextCommandIDIsMonotonic(t *testing.T) {
	first := NextCommandID()
	second := NextCommandID()
	assert.Greater(t, second, first)
}
