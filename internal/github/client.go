// Package github stores library documents through the GitHub contents API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"musicfree/internal/remote"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultBranch is the branch documents are committed to.
	DefaultBranch = "main"

	userAgent = "musicfree-sync"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error: %s - %s", e.Status, e.Body)
}

// Client implements remote.Client on top of the contents API.
type Client struct {
	baseURL    string
	branch     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, GitHub Enterprise).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithBranch overrides the target branch.
func WithBranch(branch string) Option {
	return func(c *Client) {
		if branch != "" {
			c.branch = branch
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new GitHub contents API client
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		branch:  DefaultBranch,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ remote.Client    = (*Client)(nil)
	_ remote.Inspector = (*Client)(nil)
)

type contentResponse struct {
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type commitEntry struct {
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

func (c *Client) contentsURL(repo remote.Repo, name string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name), escapePath(name))
}

func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// doRequest performs an authenticated request. A 404 yields found=false and
// no error; other non-2xx answers yield *APIError. result may be nil.
func (c *Client) doRequest(ctx context.Context, method, apiURL, token, accept string, body interface{}, result interface{}) (found bool, raw []byte, err error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return false, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return false, nil, fmt.Errorf("create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil, ctx.Err()
		}
		return false, nil, remote.Unreachable(method+" "+req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, nil, remote.Unreachable("read response", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, nil, &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(data))}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return false, nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return true, data, nil
}

func (c *Client) lookup(ctx context.Context, repo remote.Repo, token, name string) (*contentResponse, error) {
	var info contentResponse
	found, _, err := c.doRequest(ctx, http.MethodGet, c.contentsURL(repo, name)+"?ref="+url.QueryEscape(c.branch), token, "application/vnd.github+json", nil, &info)
	if err != nil {
		return nil, err
	}
	if !found || info.Type != "file" {
		return nil, nil
	}
	return &info, nil
}

// Fetch returns the named file on the configured branch, or nil when it does
// not exist.
func (c *Client) Fetch(ctx context.Context, target remote.Target, name string) (*remote.Document, error) {
	repo, err := remote.ParseRepoURL(target.RepoURL)
	if err != nil {
		return nil, err
	}

	info, err := c.lookup(ctx, repo, target.Token, name)
	if err != nil || info == nil {
		return nil, err
	}

	// Files above 1 MB come back without inline content.
	if info.Encoding == "base64" && info.Content != "" {
		content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(info.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return &remote.Document{Content: content, SHA: info.SHA}, nil
	}

	found, raw, err := c.doRequest(ctx, http.MethodGet, c.contentsURL(repo, name)+"?ref="+url.QueryEscape(c.branch), target.Token, "application/vnd.github.raw", nil, nil)
	if err != nil || !found {
		return nil, err
	}
	return &remote.Document{Content: raw, SHA: info.SHA}, nil
}

// Write commits every file with message, one commit per file, and returns
// the blob sha of the last file written. Files are written in name order.
func (c *Client) Write(ctx context.Context, target remote.Target, files map[string][]byte, message string) (string, error) {
	repo, err := remote.ParseRepoURL(target.RepoURL)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var revision string
	for _, name := range names {
		existing, err := c.lookup(ctx, repo, target.Token, name)
		if err != nil {
			return "", fmt.Errorf("lookup %s: %w", name, err)
		}

		body := putRequest{
			Message: message,
			Content: base64.StdEncoding.EncodeToString(files[name]),
			Branch:  c.branch,
		}
		if existing != nil {
			body.SHA = existing.SHA
		}

		var out putResponse
		found, _, err := c.doRequest(ctx, http.MethodPut, c.contentsURL(repo, name), target.Token, "application/vnd.github+json", body, &out)
		if err != nil {
			return "", fmt.Errorf("update %s: %w", name, err)
		}
		if !found {
			return "", fmt.Errorf("update %s: %w", name, &APIError{StatusCode: http.StatusNotFound, Status: "404 Not Found", Body: "repository not found or token lacks access"})
		}

		log.Debug().
			Str("repo", repo.String()).
			Str("file", name).
			Str("commit", out.Commit.SHA).
			Msg("file committed")
		revision = out.Content.SHA
	}
	return revision, nil
}

// Info returns the sha and size of the named file and the time of the last
// commit touching it, or nil when the file does not exist.
func (c *Client) Info(ctx context.Context, target remote.Target, name string) (*remote.FileInfo, error) {
	repo, err := remote.ParseRepoURL(target.RepoURL)
	if err != nil {
		return nil, err
	}

	content, err := c.lookup(ctx, repo, target.Token, name)
	if err != nil || content == nil {
		return nil, err
	}
	info := &remote.FileInfo{SHA: content.SHA, Size: content.Size}

	commitsURL := fmt.Sprintf("%s/repos/%s/%s/commits?path=%s&sha=%s&per_page=1",
		c.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.QueryEscape(name), url.QueryEscape(c.branch))
	var commits []commitEntry
	if _, _, err := c.doRequest(ctx, http.MethodGet, commitsURL, target.Token, "application/vnd.github+json", nil, &commits); err != nil {
		// The modification time is informational only.
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return nil, err
		}
		log.Debug().Err(err).Str("file", name).Msg("commit lookup failed")
	}
	if len(commits) > 0 {
		ts := commits[0].Commit.Committer.Date
		info.LastModified = &ts
	}
	return info, nil
}
