// Package cdp talks to the Steam client's embedded CEF debugger: it
// discovers debuggable execution contexts over HTTP and executes a single
// correlated command against one of them over a websocket.
//
// The surface is deliberately narrow. There is no session cache and no
// long-lived connection: every reload dials fresh, sends one envelope,
// and resolves or fails on that envelope alone.
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/serious-angel/steam-client-custom-toasts/internal/logging"
)

const defaultDiscoveryTimeout = 10 * time.Second

// Context is one debuggable execution context as listed by the debugger's
// HTTP endpoint. Only the fields the selector needs are decoded.
type Context struct {
	Title                string `json:"title"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Client lists execution contexts from the debugger's JSON endpoint.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient returns a discovery client for the given endpoint, typically
// http://localhost:8080/json.
func NewClient(url string) *Client {
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: defaultDiscoveryTimeout},
	}
}

// Discover fetches the current context list. Every failure mode, including
// an empty list, surfaces as a DiscoveryError so callers can distinguish
// "debugger unreachable" from "debugger reachable but context missing".
func (c *Client) Discover(ctx context.Context) ([]Context, error) {
	timer := logging.StartTimer(logging.CategoryDiscovery, "Discover")
	defer timer.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: c.URL, Err: err}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		logging.Get(logging.CategoryDiscovery).Error("Context listing failed: %v", err)
		return nil, &DiscoveryError{URL: c.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DiscoveryError{URL: c.URL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DiscoveryError{URL: c.URL, Err: fmt.Errorf("reading context list: %w", err)}
	}

	var contexts []Context
	if err := json.Unmarshal(body, &contexts); err != nil {
		return nil, &DiscoveryError{URL: c.URL, Err: fmt.Errorf("decoding context list: %w", err)}
	}
	if len(contexts) == 0 {
		return nil, &DiscoveryError{URL: c.URL, Err: errors.New("no debuggable contexts listed")}
	}

	logging.Discovery("Listed %d debuggable context(s)", len(contexts))
	for _, entry := range contexts {
		logging.DiscoveryDebug("Context %q at %s", entry.Title, entry.WebSocketDebuggerURL)
	}
	return contexts, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// FindContext selects the context whose title matches exactly. The error
// carries every listed title so a wrong configuration is diagnosable from
// the message alone.
func FindContext(contexts []Context, title string) (Context, error) {
	for _, entry := range contexts {
		if entry.Title == title {
			return entry, nil
		}
	}
	available := make([]string, 0, len(contexts))
	for _, entry := range contexts {
		available = append(available, entry.Title)
	}
	return Context{}, &ContextNotFoundError{Title: title, Available: available}
}
