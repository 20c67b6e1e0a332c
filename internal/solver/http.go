package solver

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

	"github.com/okian/ctfboard/internal/domain/model"
	"github.com/okian/ctfboard/internal/domain/types"
)

// APIError is a non-2xx response from the scoreboard.
type APIError struct {
	Status int
	Errors []types.ErrorItem
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msgs = append(msgs, item.Message)
	}
	return fmt.Sprintf("scoreboard returned %d: %s", e.Status, strings.Join(msgs, "; "))
}

// Message returns the first error message of the response.
func (e *APIError) Message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}

// Client talks to the scoreboard HTTP API
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewClient creates a client with timeout. token may be empty for the
// public endpoints.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Challenge fetches the published challenge.
func (c *Client) Challenge(ctx context.Context, id string) (model.Challenge, error) {
	var out model.Challenge
	err := c.do(ctx, http.MethodGet, "/challenges/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Teams lists registered teams.
func (c *Client) Teams(ctx context.Context) ([]types.TeamSummary, error) {
	var out []types.TeamSummary
	err := c.do(ctx, http.MethodGet, "/teams", nil, &out)
	return out, err
}

// Scoreboard fetches the current standings.
func (c *Client) Scoreboard(ctx context.Context) (types.Scoreboard, error) {
	var out types.Scoreboard
	err := c.do(ctx, http.MethodGet, "/score", nil, &out)
	return out, err
}

// SubmitSigned posts a signed-hash proof.
func (c *Client) SubmitSigned(ctx context.Context, teamID string, req types.SubmitRequest) (types.Solved, error) {
	var out types.Solved
	err := c.do(ctx, http.MethodPost, "/teams/"+url.PathEscape(teamID)+"/solves", req, &out)
	return out, err
}

// Step1 opens an interactive session.
func (c *Client) Step1(ctx context.Context, teamID, challengeID string, req types.Step1Request) (types.Step1Response, error) {
	var out types.Step1Response
	err := c.do(ctx, http.MethodPost, stepPath(teamID, challengeID, 1), req, &out)
	return out, err
}

// Step2 completes an interactive session.
func (c *Client) Step2(ctx context.Context, teamID, challengeID string, req types.Step2Request) (types.Solved, error) {
	var out types.Solved
	err := c.do(ctx, http.MethodPost, stepPath(teamID, challengeID, 2), req, &out)
	return out, err
}

func stepPath(teamID, challengeID string, step int) string {
	return fmt.Sprintf("/teams/%s/solves/%s/steps/%d", url.PathEscape(teamID), url.PathEscape(challengeID), step)
}

// do performs a request with a JSON body and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var er types.ErrorResponse
		if json.Unmarshal(data, &er) == nil {
			apiErr.Errors = er.Errors
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
