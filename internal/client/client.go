// Package client is a typed wrapper around the HTTP API. Each method makes one
// request; nothing is retried or cached.
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
	"time"

	"github.com/pkg/errors"

	"minecarbon/internal/calc"
	"minecarbon/internal/models"
	"minecarbon/internal/services"
)

const defaultHTTPTimeout = 10 * time.Second

// APIError is a non-2xx response. Message is the server's "error" field, or the
// status text when the body had none.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Session is the result of Login or Register and authenticates later calls.
type Session struct {
	UserID   int64
	Username string
	Token    string
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout on a copy of the current HTTP client,
// so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		h := *c.http
		h.Timeout = d
		c.http = &h
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, username, password string) (Session, error) {
	var out struct {
		UserID int64  `json:"userId"`
		Token  string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/users/register", "", credentials{username, password}, &out)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: out.UserID, Username: username, Token: out.Token}, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var out struct {
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
		Token    string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/users/login", "", credentials{username, password}, &out)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: out.UserID, Username: out.Username, Token: out.Token}, nil
}

func (c *Client) CreateEmission(ctx context.Context, s Session, f services.EmissionFields) (int64, error) {
	var out struct {
		EmissionID int64 `json:"emissionId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/emissions", s.Token, f, &out); err != nil {
		return 0, err
	}
	return out.EmissionID, nil
}

func (c *Client) ListEmissions(ctx context.Context, s Session, q services.ListQuery) ([]models.Emission, error) {
	var out []models.Emission
	path := fmt.Sprintf("/api/emissions/user/%d", s.UserID) + encodeQuery(q)
	if err := c.do(ctx, http.MethodGet, path, s.Token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateEmission(ctx context.Context, s Session, id int64, patch services.EmissionFields) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/emissions/%d", id), s.Token, patch, nil)
}

func (c *Client) DeleteEmission(ctx context.Context, s Session, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/emissions/%d", id), s.Token, nil, nil)
}

func (c *Client) CreateSink(ctx context.Context, s Session, f services.SinkFields) (int64, error) {
	var out struct {
		SinkID int64 `json:"sinkId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sinks", s.Token, f, &out); err != nil {
		return 0, err
	}
	return out.SinkID, nil
}

func (c *Client) ListSinks(ctx context.Context, s Session, q services.ListQuery) ([]models.Sink, error) {
	var out []models.Sink
	path := fmt.Sprintf("/api/sinks/user/%d", s.UserID) + encodeQuery(q)
	if err := c.do(ctx, http.MethodGet, path, s.Token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateSink(ctx context.Context, s Session, id int64, patch services.SinkFields) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/sinks/%d", id), s.Token, patch, nil)
}

func (c *Client) DeleteSink(ctx context.Context, s Session, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/sinks/%d", id), s.Token, nil, nil)
}

func (c *Client) Dashboard(ctx context.Context, s Session, startDate, endDate string) (services.DashboardSummary, error) {
	var out services.DashboardSummary
	path := "/api/dashboard" + encodeQuery(services.ListQuery{StartDate: startDate, EndDate: endDate})
	err := c.do(ctx, http.MethodGet, path, s.Token, nil, &out)
	return out, err
}

// Report fetches a summary report; kind is emissions, sinks or neutrality.
func (c *Client) Report(ctx context.Context, s Session, kind, startDate, endDate string) (services.Report, error) {
	var out services.Report
	path := "/api/reports" + encodeQuery(services.ListQuery{StartDate: startDate, EndDate: endDate})
	if kind != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "type=" + url.QueryEscape(kind)
	}
	err := c.do(ctx, http.MethodGet, path, s.Token, nil, &out)
	return out, err
}

func (c *Client) CalculateEmissions(ctx context.Context, in calc.EmissionInput) (calc.EmissionResult, error) {
	var out calc.EmissionResult
	err := c.do(ctx, http.MethodPost, "/api/calculate/emissions", "", in, &out)
	return out, err
}

func (c *Client) CalculateSequestration(ctx context.Context, in calc.SequestrationInput) (calc.SequestrationResult, error) {
	var out calc.SequestrationResult
	err := c.do(ctx, http.MethodPost, "/api/calculate/sequestration", "", in, &out)
	return out, err
}

func (c *Client) Simulate(ctx context.Context, in calc.SimulationInput) (calc.SimulationResult, error) {
	var out calc.SimulationResult
	err := c.do(ctx, http.MethodPost, "/api/simulations", "", in, &out)
	return out, err
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func encodeQuery(q services.ListQuery) string {
	v := url.Values{}
	for key, val := range map[string]string{
		"startDate": q.StartDate,
		"endDate":   q.EndDate,
		"sortBy":    q.SortBy,
		"sortOrder": q.SortOrder,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
