// Package backend is the HTTP client for the remote dialogue service. It
// does transport and decoding only; conversational state lives in
// internal/chat.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopchat/internal/errors"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 2048

// Client talks to the dialogue backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     zerolog.Logger
}

// New creates a Client for the given base URL (including the API prefix,
// e.g. "http://localhost:8000/api/v1"). A zero timeout keeps the transport
// default: no explicit deadline.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "backend").Logger(),
	}
}

// Send issues one dialogue turn. An empty message (after trimming) is a
// silent no-op returning (nil, nil). There is no retry: a failed turn is
// surfaced once and the user must re-submit.
func (c *Client) Send(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return nil, nil
	}
	if req.ConversationHistory == nil {
		req.ConversationHistory = []HistoryEntry{}
	}

	c.log.Debug().
		Str("session_id", req.SessionID).
		Str("selected_product_id", req.SelectedProductID).
		Int("page_number", req.PageNumber).
		Msg("sending dialogue turn")

	var resp TurnResponse
	if err := c.postJSON(ctx, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Identify establishes (or reuses) a backend chat session for an email.
func (c *Client) Identify(ctx context.Context, req IdentifyRequest) (*IdentifyResponse, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, errors.NewInvalidRequest("email is required")
	}

	var resp IdentifyResponse
	if err := c.postJSON(ctx, "/auth/identify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches the remote transcript for a session.
func (c *Client) History(ctx context.Context, email, sessionID string) (*HistoryResponse, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("session_id", sessionID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat/history?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var resp HistoryResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearContext asks the backend to drop its server-side session context.
// Best-effort companion to a local conversation reset.
func (c *Client) ClearContext(ctx context.Context, sessionID string) error {
	u := fmt.Sprintf("%s/clear-context?session_id=%s", c.baseURL, url.QueryEscape(sessionID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	return c.do(httpReq, nil)
}

// postJSON encodes body, posts it to path, and decodes into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.NewInternal(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return errors.NewInternal(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, out)
}

// do executes the request and decodes the response. Non-2xx statuses become
// BACKEND_ERROR; bodies that fail to decode become BAD_PAYLOAD. Optional
// fields missing from the body simply stay at their zero values, so a thin
// payload degrades instead of failing.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.NewBackend(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", req.URL.Path).Msg("backend error response")
		return errors.NewBackend(resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Warn().Err(err).Str("path", req.URL.Path).Msg("malformed backend payload")
		return errors.NewBadPayload(err)
	}
	return nil
}
