// Package client talks to a running recorder over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/domain/analysis"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/internal/domain/types"
)

const defaultTimeout = 10 * time.Second

// Client is a thin typed wrapper over the recorder API.
type Client struct {
	base   string
	http   *http.Client
	dialer websocket.Dialer
}

// New returns a client for the recorder at baseURL, e.g. http://localhost:9080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		dialer: websocket.Dialer{HandshakeTimeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.do(ctx, http.MethodGet, "/healthz", nil, &out)
}

// Session returns the current session status.
func (c *Client) Session(ctx context.Context) (types.SessionStatus, error) {
	var st types.SessionStatus
	err := c.do(ctx, http.MethodGet, "/session", nil, &st)
	return st, err
}

// Start presses Record.
func (c *Client) Start(ctx context.Context) (types.SessionStatus, error) {
	return c.press(ctx, "start")
}

// Stop presses Stop.
func (c *Client) Stop(ctx context.Context) (types.SessionStatus, error) {
	return c.press(ctx, "stop")
}

// Discard drops a stopped recording.
func (c *Client) Discard(ctx context.Context) (types.SessionStatus, error) {
	return c.press(ctx, "discard")
}

func (c *Client) press(ctx context.Context, action string) (types.SessionStatus, error) {
	var st types.SessionStatus
	err := c.do(ctx, http.MethodPost, "/session/"+action, nil, &st)
	return st, err
}

// Save names and exports the stopped recording.
func (c *Client) Save(ctx context.Context, name string) (types.SaveResult, error) {
	var res types.SaveResult
	err := c.do(ctx, http.MethodPost, "/session/save", types.SaveRequest{Name: name}, &res)
	return res, err
}

// SubmitPose posts a single pose update.
func (c *Client) SubmitPose(ctx context.Context, u model.PoseUpdate) (types.PoseAck, error) {
	var ack types.PoseAck
	err := c.do(ctx, http.MethodPost, "/poses", u, &ack)
	return ack, err
}

// ListRecordings returns the saved recordings.
func (c *Client) ListRecordings(ctx context.Context) ([]types.RecordingInfo, error) {
	var out struct {
		Recordings []types.RecordingInfo `json:"recordings"`
	}
	err := c.do(ctx, http.MethodGet, "/recordings", nil, &out)
	return out.Recordings, err
}

// Download returns the raw CSV of a recording.
func (c *Client) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/recordings/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Summary returns the motion summary of a recording.
func (c *Client) Summary(ctx context.Context, name string) (analysis.Summary, error) {
	var sum analysis.Summary
	err := c.do(ctx, http.MethodGet, "/recordings/"+url.PathEscape(name)+"/summary", nil, &sum)
	return sum, err
}

// Delete removes a recording.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/recordings/"+url.PathEscape(name), nil, nil)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, apiErr) != nil || apiErr.Code == "" {
		apiErr.Code = "http_" + http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// Stream is an open websocket pose stream. Send is safe for one goroutine
// at a time; each Send waits for the server's reply.
type Stream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// OpenStream dials /poses/stream.
func (c *Client) OpenStream(ctx context.Context) (*Stream, error) {
	u := c.base + "/poses/stream"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	conn, resp, err := c.dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return &Stream{conn: conn}, nil
}

// Send writes one pose update and reads the acknowledgement.
func (s *Stream) Send(u model.PoseUpdate) (types.PoseAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(u); err != nil {
		return types.PoseAck{}, fmt.Errorf("write pose: %w", err)
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return types.PoseAck{}, fmt.Errorf("read ack: %w", err)
	}
	var body struct {
		Code string `json:"code"`
	}
	if json.Unmarshal(data, &body) == nil && body.Code != "" {
		apiErr := &APIError{}
		_ = json.Unmarshal(data, apiErr)
		return types.PoseAck{}, apiErr
	}
	var ack types.PoseAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return types.PoseAck{}, fmt.Errorf("decode ack: %w", err)
	}
	return ack, nil
}

// Close sends a close frame and closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}
