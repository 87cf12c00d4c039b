// Package gitrepo stores library documents by cloning the repository into
// memory, committing and pushing with go-git. It works with any Git host.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/rs/zerolog/log"

	"musicfree/internal/remote"
)

const (
	// DefaultBranch is the branch documents are committed to.
	DefaultBranch = "main"
	// DefaultHost is used for short owner/repo locators.
	DefaultHost = "github.com"
	// DefaultRemoteName is the name given to the cloned remote.
	DefaultRemoteName = "origin"

	// pushAttempts bounds the re-clone loop when another device pushed first.
	pushAttempts = 3
)

// Signature identifies the author of sync commits.
type Signature struct {
	Name  string
	Email string
}

// Client implements remote.Client with an in-memory clone per call.
type Client struct {
	host   string
	branch string
	author Signature
	now    func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHost sets the host used for owner/repo locators.
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
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

// WithAuthor overrides the commit signature.
func WithAuthor(sig Signature) Option {
	return func(c *Client) {
		c.author = sig
	}
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a git transport client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		host:   DefaultHost,
		branch: DefaultBranch,
		author: Signature{Name: "musicfree", Email: "musicfree@localhost"},
		now:    time.Now,
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

// endpoint resolves the clone url. http(s) and other scheme urls are used as
// given; the short owner/repo form is expanded against the configured host.
func (c *Client) endpoint(repoURL string) (string, error) {
	if strings.Contains(repoURL, "://") {
		u, err := url.Parse(repoURL)
		if err != nil || u.Path == "" || u.Path == "/" {
			return "", fmt.Errorf("%w: %q", remote.ErrInvalidRepoURL, repoURL)
		}
		return repoURL, nil
	}
	repo, err := remote.ParseRepoURL(repoURL)
	if err != nil {
		return "", err
	}
	return repo.CloneURL(c.host), nil
}

func auth(endpoint, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

// checkout clones the branch into memory. A repository without commits or
// without the branch yields a fresh repository whose HEAD points at the
// branch, with fresh=true.
func (c *Client) checkout(ctx context.Context, target remote.Target) (repo *git.Repository, fresh bool, err error) {
	endpoint, err := c.endpoint(target.RepoURL)
	if err != nil {
		return nil, false, err
	}
	branch := plumbing.NewBranchReferenceName(c.branch)

	repo, err = git.CloneContext(ctx, memory.NewStorage(), memfs.New(), &git.CloneOptions{
		URL:           endpoint,
		Auth:          auth(endpoint, target.Token),
		RemoteName:    DefaultRemoteName,
		ReferenceName: branch,
		SingleBranch:  true,
	})
	if err == nil {
		return repo, false, nil
	}
	if !isMissingBranch(err) {
		return nil, false, classify("clone", err)
	}

	repo, err = git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		return nil, false, fmt.Errorf("init repository: %w", err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: DefaultRemoteName, URLs: []string{endpoint}}); err != nil {
		return nil, false, fmt.Errorf("create remote: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branch)); err != nil {
		return nil, false, fmt.Errorf("point HEAD at %s: %w", c.branch, err)
	}
	return repo, true, nil
}

func isMissingBranch(err error) bool {
	var noMatch git.NoMatchingRefSpecError
	return errors.Is(err, transport.ErrEmptyRemoteRepository) ||
		errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.As(err, &noMatch)
}

// classify wraps connectivity failures in remote.ErrUnreachable.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, transport.ErrInvalidAuthMethod):
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return remote.Unreachable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func blobHash(repo *git.Repository, name string) (plumbing.Hash, int64, error) {
	head, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}
	file, err := commit.File(name)
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}
	return file.Hash, file.Size, nil
}

// Fetch returns the named file at the branch head, or nil when the
// repository, the branch or the file does not exist.
func (c *Client) Fetch(ctx context.Context, target remote.Target, name string) (*remote.Document, error) {
	repo, fresh, err := c.checkout(ctx, target)
	if err != nil || fresh {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}

	f, err := wt.Filesystem.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	hash, _, err := blobHash(repo, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	return &remote.Document{Content: content, SHA: hash.String()}, nil
}

// Write commits every file in a single commit on top of the branch head and
// pushes it. When another writer pushed in between, the write is replayed on
// the new head. It returns the blob hash of the last file in name order.
func (c *Client) Write(ctx context.Context, target remote.Target, files map[string][]byte, message string) (string, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "", nil
	}

	var lastErr error
	for attempt := 1; attempt <= pushAttempts; attempt++ {
		revision, err := c.writeOnce(ctx, target, names, files, message)
		if err == nil {
			return revision, nil
		}
		if !errors.Is(err, git.ErrNonFastForwardUpdate) {
			return "", err
		}
		lastErr = err
		log.Debug().Int("attempt", attempt).Msg("remote moved during write, retrying")
	}
	return "", lastErr
}

func (c *Client) writeOnce(ctx context.Context, target remote.Target, names []string, files map[string][]byte, message string) (string, error) {
	repo, _, err := c.checkout(ctx, target)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	for _, name := range names {
		if err := util.WriteFile(wt.Filesystem, name, files[name], 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			return "", fmt.Errorf("stage %s: %w", name, err)
		}
	}

	commit, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: c.author.Name, Email: c.author.Email, When: c.now()},
	})
	switch {
	case errors.Is(err, git.ErrEmptyCommit):
		log.Debug().Msg("remote already up to date")
	case err != nil:
		return "", fmt.Errorf("commit: %w", err)
	default:
		refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", c.branch, c.branch))
		endpoint, _ := c.endpoint(target.RepoURL)
		err = repo.PushContext(ctx, &git.PushOptions{
			RemoteName: DefaultRemoteName,
			RefSpecs:   []config.RefSpec{refSpec},
			Auth:       auth(endpoint, target.Token),
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			if errors.Is(err, git.ErrNonFastForwardUpdate) {
				return "", err
			}
			return "", classify("push", err)
		}
		log.Debug().Str("commit", commit.String()).Str("branch", c.branch).Msg("library pushed")
	}

	hash, _, err := blobHash(repo, names[len(names)-1])
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", names[len(names)-1], err)
	}
	return hash.String(), nil
}

// Info returns the blob hash and size of the named file and the time of the
// last commit touching it, or nil when it does not exist.
func (c *Client) Info(ctx context.Context, target remote.Target, name string) (*remote.FileInfo, error) {
	repo, fresh, err := c.checkout(ctx, target)
	if err != nil || fresh {
		return nil, err
	}

	hash, size, err := blobHash(repo, name)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	info := &remote.FileInfo{SHA: hash.String(), Size: size}

	iter, err := repo.Log(&git.LogOptions{FileName: &name})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", name, err)
	}
	defer iter.Close()
	if commit, err := iter.Next(); err == nil {
		when := commit.Committer.When
		info.LastModified = &when
	}
	return info, nil
}
