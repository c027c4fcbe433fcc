// Package chatclient consumes the hearth chat stream. It enforces the
// client-side inactivity timeout, tracks the session status and supports
// retrying an exchange with the same message.
package chatclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/notify"
	"github.com/papercomputeco/hearth/pkg/sse"
	"github.com/papercomputeco/hearth/pkg/storage"
)

// DefaultInactivityTimeout tolerates several missed heartbeats.
const DefaultInactivityTimeout = 90 * time.Second

const (
	streamPath      = "/v1/chat/stream"
	diagnosticsPath = "/v1/diagnostics"
)

var (
	// ErrTimedOut is returned when no frame arrived within the inactivity
	// timeout.
	ErrTimedOut = errors.New("connection timed out")

	// ErrStreamClosed is returned when the stream ended without done or error.
	ErrStreamClosed = errors.New("stream closed before completion")
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusStreaming  Status = "streaming"
	StatusDone       Status = "done"
	StatusErrored    Status = "errored"
	StatusTimedOut   Status = "timed_out"
)

// Transport selects how the stream is requested.
type Transport int

const (
	// TransportSSE issues a GET with query parameters and reads SSE frames.
	TransportSSE Transport = iota

	// TransportNDJSON issues a POST with a JSON body and reads JSON lines.
	TransportNDJSON
)

// ServerError is returned for a request the server rejected before
// streaming, or for an error event received mid-stream.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Status == 0 {
		return "server error: " + e.Message
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Session is one chat exchange as seen by the client. It only lives in
// memory.
type Session struct {
	Request  chat.Request
	Status   Status
	Response string
	Err      error
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	HTTPClient        *http.Client
	Transport         Transport
	InactivityTimeout time.Duration
	Notifier          notify.Notifier
	Logger            *slog.Logger

	// ReportErrors sends stream failures to the server diagnostics
	// endpoint.
	ReportErrors bool
}

// Client talks to a hearth API server.
type Client struct {
	base      string
	http      *http.Client
	transport Transport
	timeout   time.Duration
	notifier  notify.Notifier
	logger    *slog.Logger
	report    bool
}

// New creates a Client.
func New(c Config) (*Client, error) {
	if c.BaseURL == "" {
		return nil, errors.New("chat client requires a base URL")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if c.HTTPClient == nil {
		// No overall timeout: streams are bounded by the inactivity timer.
		c.HTTPClient = &http.Client{}
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop()
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	return &Client{
		base:      strings.TrimRight(c.BaseURL, "/"),
		http:      c.HTTPClient,
		transport: c.Transport,
		timeout:   c.InactivityTimeout,
		notifier:  c.Notifier,
		logger:    c.Logger,
		report:    c.ReportErrors,
	}, nil
}

// Stream sends req and calls onDelta for each content delta in order. The
// returned session is never nil; its Err matches the returned error.
func (c *Client) Stream(ctx context.Context, req chat.Request, onDelta func(string)) (*Session, error) {
	s := &Session{Request: req, Status: StatusConnecting}
	err := c.run(ctx, s, onDelta)
	s.Err = err

	switch {
	case err == nil:
		s.Status = StatusDone
	case errors.Is(err, ErrTimedOut):
		s.Status = StatusTimedOut
		c.notifier.Notify(notify.Notice{
			Level:   notify.LevelWarning,
			Title:   "Connection timed out",
			Message: "No response from the assistant. Retry to send the message again.",
		})
	default:
		s.Status = StatusErrored
		c.notifier.Notify(notify.Notice{
			Level:   notify.LevelError,
			Title:   "Connection failed",
			Message: "Please try again.",
		})
	}

	if err != nil && c.report {
		c.reportError(context.WithoutCancel(ctx), err)
	}
	return s, err
}

// Retry resubmits the message of a finished session as a new exchange.
func (c *Client) Retry(ctx context.Context, prev *Session, onDelta func(string)) (*Session, error) {
	return c.Stream(ctx, prev.Request, onDelta)
}

func (c *Client) run(ctx context.Context, s *Session, onDelta func(string)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timedOut atomic.Bool
	timer := time.AfterFunc(c.timeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer timer.Stop()
	touch := func() { timer.Reset(c.timeout) }

	httpReq, err := c.newRequest(ctx, s.Request)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if timedOut.Load() {
			return ErrTimedOut
		}
		return fmt.Errorf("connecting to chat stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeServerError(resp)
	}

	var full strings.Builder
	handle := func(ev chat.Event) (bool, error) {
		switch ev.Type {
		case chat.EventConnected:
			s.Status = StatusStreaming
		case chat.EventContent:
			s.Status = StatusStreaming
			full.WriteString(ev.Content)
			s.Response = full.String()
			if onDelta != nil {
				onDelta(ev.Content)
			}
		case chat.EventDone, chat.EventComplete:
			if ev.FullResponse != "" {
				s.Response = ev.FullResponse
			}
			return true, nil
		case chat.EventError:
			msg := ev.Error
			if msg == "" {
				msg = "Server error"
			}
			return true, &ServerError{Message: msg}
		}
		return false, nil
	}

	if c.transport == TransportNDJSON {
		err = readNDJSON(resp.Body, touch, handle)
	} else {
		err = readSSE(resp.Body, touch, handle)
	}
	if err != nil && timedOut.Load() {
		return ErrTimedOut
	}
	return err
}

func (c *Client) newRequest(ctx context.Context, req chat.Request) (*http.Request, error) {
	if c.transport == TransportNDJSON {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+streamPath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Accept", chat.ContentTypeNDJSON)
		return r, nil
	}

	q := url.Values{}
	q.Set("message", req.Message)
	q.Set("household_id", req.HouseholdID)
	if req.UserID != "" {
		q.Set("user_id", req.UserID)
	}
	if req.HistoryLimit != nil {
		q.Set("history_limit", strconv.Itoa(*req.HistoryLimit))
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+streamPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", chat.ContentTypeSSE)
	return r, nil
}

type eventHandler func(chat.Event) (terminal bool, err error)

func readSSE(body io.Reader, touch func(), handle eventHandler) error {
	r := sse.NewReader(body)
	r.OnFrame = touch

	for {
		raw, err := r.Next()
		if err != nil {
			return err
		}
		if raw == nil {
			return ErrStreamClosed
		}

		var ev chat.Event
		if err := json.Unmarshal([]byte(raw.Data), &ev); err != nil {
			continue
		}
		if done, err := handle(ev); done || err != nil {
			return err
		}
	}
}

func readNDJSON(body io.Reader, touch func(), handle eventHandler) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		touch()
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev chat.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if done, err := handle(ev); done || err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return ErrStreamClosed
}

func decodeServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &ServerError{Status: resp.StatusCode, Message: msg}
}

// reportError records a client-side stream failure on the server. Failures
// to report are only logged.
func (c *Client) reportError(ctx context.Context, streamErr error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := json.Marshal(diagnostics.Record{
		Fingerprint: diagnostics.ChatStreamClientError,
		Level:       diagnostics.LevelError,
		Category:    "ai_chat_stream",
		Scope:       diagnostics.ScopeClient,
		Message:     "chat stream failed: " + streamErr.Error(),
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+diagnosticsPath, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("could not report client error", logger.Err(err))
		return
	}
	resp.Body.Close()
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pinging server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeServerError(resp)
	}
	return nil
}

// Diagnostics lists the server's error aggregates, most recent first.
func (c *Client) Diagnostics(ctx context.Context, limit int) ([]*storage.ErrorAggregate, error) {
	u := c.base + diagnosticsPath
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing diagnostics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeServerError(resp)
	}

	var payload struct {
		Aggregates []*storage.ErrorAggregate `json:"aggregates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding diagnostics: %w", err)
	}
	return payload.Aggregates, nil
}
