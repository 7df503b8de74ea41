package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/serious-angel/steam-client-custom-toasts/internal/logging"
)

const (
	evaluateMethod        = "Runtime.evaluate"
	defaultResponseWindow = 10 * time.Second
)

// commandSeq issues correlation ids. Process-wide so ids stay unique even
// if several channels are created; the first id handed out is 1.
var commandSeq atomic.Int64

// NextCommandID returns the next correlation id.
func NextCommandID() int64 {
	return commandSeq.Add(1)
}

// Envelope is the one command a channel sends per connection.
type Envelope struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	Params EvaluateParams `json:"params"`
}

// EvaluateParams requests a user-gesture evaluation and resolution of the
// returned promise, mirroring what the expression needs to restart the
// context cleanly.
type EvaluateParams struct {
	Expression   string `json:"expression"`
	UserGesture  bool   `json:"userGesture"`
	AwaitPromise bool   `json:"awaitPromise"`
}

// inbound is the subset of a debugger message the channel inspects.
// Events carry a method and no id, responses the reverse.
type inbound struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Result *evalResult `json:"result"`
}

type evalResult struct {
	Result           json.RawMessage   `json:"result"`
	ExceptionDetails *exceptionDetails `json:"exceptionDetails"`
}

type exceptionDetails struct {
	Text      string `json:"text"`
	Exception *struct {
		Description string `json:"description"`
	} `json:"exception"`
}

func (d *exceptionDetails) describe() string {
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	if d.Text != "" {
		return d.Text
	}
	return "exception with no detail"
}

// outcome is the channel's write-once completion slot. Whichever of the
// reader or the timeout commits first wins; later commits are dropped.
type outcome struct {
	result json.RawMessage
	err    error
}

// Channel executes one correlated command against one execution context.
// Every call to Evaluate dials fresh and closes the connection before
// returning, whatever the outcome.
type Channel struct {
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
	// Window bounds the wait for a matching response once the envelope
	// is sent. Zero means 10s.
	Window time.Duration
	// NextID defaults to NextCommandID.
	NextID func() int64
}

// NewChannel returns a channel with the given response window.
func NewChannel(window time.Duration) *Channel {
	return &Channel{
		Dialer: websocket.DefaultDialer,
		Window: window,
		NextID: NextCommandID,
	}
}

// Evaluate dials the endpoint, sends a single Runtime.evaluate envelope,
// and resolves with the remote result payload or the first recorded
// failure. ctx governs the dial; once the envelope is sent, the response
// window alone bounds the wait.
func (ch *Channel) Evaluate(ctx context.Context, endpoint, expression string) (json.RawMessage, error) {
	id := ch.nextID()
	rl := logging.WithRequestID(logging.CategoryChannel, uuid.NewString()[:8])
	rl.Debug("Dialing %s for command %d", endpoint, id)

	conn, _, err := ch.dialer().DialContext(ctx, endpoint, nil)
	if err != nil {
		rl.Error("Dial failed: %v", err)
		return nil, &TransportError{Op: "dial", Err: err}
	}
	defer conn.Close()

	payload, err := json.Marshal(Envelope{
		ID:     id,
		Method: evaluateMethod,
		Params: EvaluateParams{
			Expression:   expression,
			UserGesture:  true,
			AwaitPromise: true,
		},
	})
	if err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		rl.Error("Send failed: %v", err)
		return nil, &TransportError{Op: "send", Err: err}
	}
	rl.Debug("Sent %s envelope id=%d", evaluateMethod, id)

	done := make(chan outcome, 1)
	commit := func(o outcome) {
		select {
		case done <- o:
		default:
		}
	}
	readerDone := make(chan struct{})
	go ch.readUntilMatched(conn, id, commit, readerDone, rl)

	window := ch.window()
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-readerDone:
	case <-timer.C:
		commit(outcome{err: &TimeoutError{ID: id, Window: window}})
		_ = conn.Close()
		<-readerDone
	}

	var out outcome
	select {
	case out = <-done:
	default:
		out = outcome{err: &NoResponseError{ID: id}}
	}
	if out.err != nil {
		rl.Error("Command %d failed: %v", id, out.err)
		return nil, out.err
	}
	rl.Info("Command %d resolved", id)
	return out.result, nil
}

// readUntilMatched consumes messages until it can commit an outcome for
// the given id or the connection ends. Events and responses with other
// ids are ignored; a clean remote close commits nothing, which the caller
// resolves as NoResponseError.
func (ch *Channel) readUntilMatched(conn *websocket.Conn, id int64, commit func(outcome), readerDone chan struct{}, rl *logging.RequestLogger) {
	defer close(readerDone)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				rl.Debug("Remote closed the connection")
				return
			}
			commit(outcome{err: &TransportError{Op: "read", Err: err}})
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			commit(outcome{err: &TransportError{Op: "decode", Err: err}})
			return
		}
		if msg.ID == 0 && msg.Method != "" {
			rl.Debug("Ignoring %s event", msg.Method)
			continue
		}
		if msg.ID != id {
			rl.Warn("Ignoring response with unrelated id %d", msg.ID)
			continue
		}

		switch {
		case msg.Result != nil && msg.Result.ExceptionDetails != nil:
			commit(outcome{err: &RemoteExecutionError{ID: id, Details: msg.Result.ExceptionDetails.describe()}})
		case msg.Result != nil && len(msg.Result.Result) > 0:
			commit(outcome{result: msg.Result.Result})
		default:
			commit(outcome{err: &TransportError{Op: "decode", Err: errors.New("matched response carries neither result nor exception details")}})
		}
		return
	}
}

func (ch *Channel) dialer() *websocket.Dialer {
	if ch.Dialer != nil {
		return ch.Dialer
	}
	return websocket.DefaultDialer
}

func (ch *Channel) window() time.Duration {
	if ch.Window > 0 {
		return ch.Window
	}
	return defaultResponseWindow
}

func (ch *Channel) nextID() int64 {
	if ch.NextID != nil {
		return ch.NextID()
	}
	return NextCommandID()
}
