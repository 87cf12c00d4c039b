// Package remote defines the repository access contract the sync pipeline
// depends on. Concrete clients live in internal/github and internal/gitrepo.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnreachable wraps connectivity failures talking to the repository host.
	ErrUnreachable = errors.New("remote unreachable")
	// ErrInvalidRepoURL is returned when a repository locator cannot be parsed.
	ErrInvalidRepoURL = errors.New("invalid repository url")
)

// Target identifies the repository and the credential used to reach it.
type Target struct {
	RepoURL string
	Token   string
}

// Document is a file fetched from the repository.
type Document struct {
	Content []byte
	SHA     string
}

// Client reads and writes files in a Git-hosted repository.
type Client interface {
	// Fetch returns the named file, or nil when it does not exist.
	Fetch(ctx context.Context, target Target, name string) (*Document, error)
	// Write stores every file in one revision and returns that revision.
	Write(ctx context.Context, target Target, files map[string][]byte, message string) (string, error)
}

// FileInfo describes a file in the repository.
type FileInfo struct {
	SHA          string     `json:"sha"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// Inspector is implemented by clients that can describe a file without
// downloading it.
type Inspector interface {
	Info(ctx context.Context, target Target, name string) (*FileInfo, error)
}

// Unreachable marks err as a connectivity failure.
func Unreachable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnreachable, err)
}

// Repo is an owner/name pair on a hosting service.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL accepts "https://github.com/owner/repo", the same with a
// trailing ".git" or over http, and the short "owner/repo" form.
func ParseRepoURL(raw string) (Repo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Repo{}, fmt.Errorf("%w: empty", ErrInvalidRepoURL)
	}

	path := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Repo{}, fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return Repo{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRepoURL, u.Scheme)
		}
		if u.Host == "" {
			return Repo{}, fmt.Errorf("%w: missing host", ErrInvalidRepoURL)
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}
	name := strings.TrimSuffix(parts[1], ".git")
	if name == "" {
		return Repo{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}
	return Repo{Owner: parts[0], Name: name}, nil
}

// CloneURL returns the https clone url for the repository on host.
func (r Repo) CloneURL(host string) string {
	if host == "" {
		host = "github.com"
	}
	return "https://" + host + "/" + r.Owner + "/" + r.Name + ".git"
}
