package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"tasklist/app"
	"tasklist/model"
)

const (
	// DefaultBaseURL is used when no API URL is configured.
	DefaultBaseURL   = "http://localhost:8080/api"
	defaultUserAgent = "tasklist/0.1"
	requestTimeout   = 5 * time.Second
	maxErrorBody     = 64 << 10
)

// ErrNotSignedIn is returned for authenticated calls made before a session
// token is set.
var ErrNotSignedIn = errors.New("sessão não iniciada")

// APIError is a failed API call. Status 0 means the request never got a
// response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is an API rejection of the session.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	return errors.Is(err, ErrNotSignedIn)
}

// Options configures NewClient.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport is the underlying round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the task list REST API. It is an app.Backend and
// app.Fetcher, and signs users in for the auth package.
type Client struct {
	baseURL   *url.URL
	plain     *http.Client
	authed    *http.Client
	userAgent string
	timeout   time.Duration
	now       func() time.Time

	mu     sync.RWMutex
	token  string
	userID string
}

var (
	_ app.Backend = (*Client)(nil)
	_ app.Fetcher = (*Client)(nil)
)

// NewClient builds a Client for the API rooted at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		baseURL:   base,
		plain:     &http.Client{Transport: transport},
		userAgent: userAgent,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
	c.authed = &http.Client{
		Transport: &oauth2.Transport{Source: sessionTokens{c: c}, Base: transport},
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SetSession installs the user id and bearer token used by every
// authenticated call. Empty values sign the client out.
func (c *Client) SetSession(userID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.token = token
}

// Session returns the current user id and token.
func (c *Client) Session() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.token
}

// sessionTokens feeds the current session token to oauth2.Transport.
type sessionTokens struct {
	c *Client
}

func (s sessionTokens) Token() (*oauth2.Token, error) {
	_, token := s.c.Session()
	if token == "" {
		return nil, ErrNotSignedIn
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// Authenticate signs in with the API and keeps the returned token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (model.User, string, error) {
	var resp loginResponse
	body := loginRequest{Username: username, Password: password}
	if err := c.do(ctx, c.plain, http.MethodPost, c.endpoint(nil, "auth", "login"), body, &resp); err != nil {
		return model.User{}, "", err
	}
	if resp.Token == "" {
		return model.User{}, "", &APIError{Status: http.StatusBadGateway, Message: "login sem token na resposta"}
	}
	user := resp.User.toModel(username, c.now())
	c.SetSession(user.ID, resp.Token)
	return user, resp.Token, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var dto userDTO
	if err := c.do(ctx, c.authed, http.MethodGet, c.endpoint(nil, "auth", "me"), nil, &dto); err != nil {
		return model.User{}, err
	}
	return dto.toModel("", c.now()), nil
}

func (c *Client) Name() string { return "remote" }

// DefaultState is empty: the server owns the data.
func (c *Client) DefaultState() model.AppState {
	return model.EmptyState()
}

func (c *Client) FetchLists(ctx context.Context) ([]model.List, error) {
	userID, _ := c.Session()
	var dtos []listDTO
	q := url.Values{}
	q.Set("userId", userID)
	if err := c.do(ctx, c.authed, http.MethodGet, c.endpoint(q, "lists"), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.List, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel())
	}
	return out, nil
}

func (c *Client) FetchTasks(ctx context.Context, listID string) ([]model.Task, error) {
	var dtos []taskDTO
	if err := c.do(ctx, c.authed, http.MethodGet, c.endpoint(nil, "lists", listID, "tasks"), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toModel(listID))
	}
	return out, nil
}

func (c *Client) CreateList(ctx context.Context, name string) (model.List, error) {
	userID, _ := c.Session()
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("name", name)
	var dto listDTO
	if err := c.do(ctx, c.authed, http.MethodPost, c.endpoint(q, "lists"), nil, &dto); err != nil {
		return model.List{}, err
	}
	l := dto.toModel()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = c.now()
	}
	return l, nil
}

func (c *Client) RenameList(ctx context.Context, list model.List) (model.List, error) {
	q := url.Values{}
	q.Set("name", list.Name)
	var dto listDTO
	if err := c.do(ctx, c.authed, http.MethodPut, c.endpoint(q, "lists", list.ID), nil, &dto); err != nil {
		return model.List{}, err
	}
	saved := list.Clone()
	if dto.Name != "" {
		saved.Name = dto.Name
	}
	if t := parseTime(dto.UpdatedAt); !t.IsZero() {
		saved.UpdatedAt = &t
	}
	return saved, nil
}

func (c *Client) DeleteList(ctx context.Context, id string, force bool) error {
	q := url.Values{}
	q.Set("force", formatBool(force))
	return c.do(ctx, c.authed, http.MethodDelete, c.endpoint(q, "lists", id), nil, nil)
}

func (c *Client) CreateTask(ctx context.Context, listID string, draft model.TaskDraft) (model.Task, error) {
	q := url.Values{}
	q.Set("listId", listID)
	q.Set("title", draft.Title)
	if draft.Description != "" {
		q.Set("description", draft.Description)
	}
	if draft.DueDate != nil {
		q.Set("dueDate", formatDueDate(*draft.DueDate))
	}
	var dto taskDTO
	if err := c.do(ctx, c.authed, http.MethodPost, c.endpoint(q, "tasks"), nil, &dto); err != nil {
		return model.Task{}, err
	}
	t := dto.toModel(listID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now()
	}
	return t, nil
}

func (c *Client) UpdateTask(ctx context.Context, task model.Task, patch model.TaskPatch) (model.Task, error) {
	q := url.Values{}
	if patch.Title != nil {
		q.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		q.Set("description", *patch.Description)
	}
	if patch.Done != nil {
		q.Set("done", formatBool(*patch.Done))
	}
	if patch.DueDate != nil {
		q.Set("dueDate", formatDueDate(*patch.DueDate))
	}
	var dto taskDTO
	if err := c.do(ctx, c.authed, http.MethodPut, c.endpoint(q, "tasks", task.ID), nil, &dto); err != nil {
		return model.Task{}, err
	}
	if dto.ID == "" {
		return task, nil
	}
	saved := dto.toModel(task.ListID)
	saved.CreatedAt = task.CreatedAt
	return saved, nil
}

func (c *Client) DeleteTask(ctx context.Context, _ string, id string) error {
	return c.do(ctx, c.authed, http.MethodDelete, c.endpoint(nil, "tasks", id), nil, nil)
}

func (c *Client) endpoint(query url.Values, segments ...string) *url.URL {
	u := c.baseURL.JoinPath(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, client *http.Client, method string, u *url.URL, body, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, ErrNotSignedIn) {
			return ErrNotSignedIn
		}
		return &APIError{Message: "erro de rede", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Message: "erro de rede", Err: err}
	}
	if dest == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	var dto errorDTO
	if err := json.Unmarshal(data, &dto); err == nil && dto.Message != "" {
		apiErr.Code = dto.Code
		apiErr.Message = dto.Message
		return apiErr
	}
	if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") {
		apiErr.Message = text
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("erro HTTP: status %d", resp.StatusCode)
	return apiErr
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
