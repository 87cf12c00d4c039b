package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"musicfree/internal/remote"
)

// fakeContents is a minimal in-memory stand-in for the contents API.
type fakeContents struct {
	mu      sync.Mutex
	files   map[string]string
	shas    map[string]string
	puts    []putRequest
	tokens  []string
	inline  bool
	failPut int
}

func newFakeContents() *fakeContents {
	return &fakeContents{files: map[string]string{}, shas: map[string]string{}, inline: true}
}

func (f *fakeContents) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))

		if strings.HasPrefix(r.URL.Path, "/repos/alice/music/commits") {
			assert.Equal(t, "musicfree.json", r.URL.Query().Get("path"))
			_, _ = io.WriteString(w, `[{"commit":{"committer":{"date":"2026-03-04T05:06:07Z"}}}]`)
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/repos/alice/music/contents/")
		if name == r.URL.Path {
			http.NotFound(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			content, ok := f.files[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"Not Found"}`)
				return
			}
			if r.Header.Get("Accept") == "application/vnd.github.raw" {
				_, _ = io.WriteString(w, content)
				return
			}
			resp := contentResponse{SHA: f.shas[name], Size: int64(len(content)), Type: "file"}
			if f.inline {
				resp.Encoding = "base64"
				resp.Content = base64.StdEncoding.EncodeToString([]byte(content))
			} else {
				resp.Encoding = "none"
			}
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPut:
			if f.failPut != 0 {
				w.WriteHeader(f.failPut)
				_, _ = io.WriteString(w, `{"message":"conflict"}`)
				return
			}
			var req putRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if _, exists := f.files[name]; exists && req.SHA != f.shas[name] {
				w.WriteHeader(http.StatusConflict)
				return
			}
			data, err := base64.StdEncoding.DecodeString(req.Content)
			require.NoError(t, err)
			f.puts = append(f.puts, req)
			f.files[name] = string(data)
			f.shas[name] = "blob-" + string(rune('0'+len(f.puts)))
			var out putResponse
			out.Content.SHA = f.shas[name]
			out.Commit.SHA = "commit-" + string(rune('0'+len(f.puts)))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(out)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func setup(t *testing.T) (*fakeContents, *Client, remote.Target) {
	t.Helper()
	fake := newFakeContents()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	return fake, client, remote.Target{RepoURL: "https://github.com/alice/music.git", Token: "tok"}
}

func TestFetchMissingFile(t *testing.T) {
	_, client, target := setup(t)

	doc, err := client.Fetch(context.Background(), target, "musicfree.json")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFetchInlineAndRaw(t *testing.T) {
	for _, inline := range []bool{true, false} {
		fake, client, target := setup(t)
		fake.inline = inline
		fake.files["musicfree.json"] = `{"playlists":[]}`
		fake.shas["musicfree.json"] = "abc"

		doc, err := client.Fetch(context.Background(), target, "musicfree.json")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, `{"playlists":[]}`, string(doc.Content))
		assert.Equal(t, "abc", doc.SHA)
		assert.Contains(t, fake.tokens, "Bearer tok")
	}
}

func TestWriteCreatesThenUpdates(t *testing.T) {
	fake, client, target := setup(t)
	ctx := context.Background()

	rev, err := client.Write(ctx, target, map[string][]byte{"musicfree.json": []byte("v1")}, "first")
	require.NoError(t, err)
	assert.Equal(t, "blob-1", rev)

	rev, err = client.Write(ctx, target, map[string][]byte{"musicfree.json": []byte("v2")}, "second")
	require.NoError(t, err)
	assert.Equal(t, "blob-2", rev)

	require.Len(t, fake.puts, 2)
	assert.Empty(t, fake.puts[0].SHA, "create must not send a sha")
	assert.Equal(t, "blob-1", fake.puts[1].SHA, "update must send the current sha")
	assert.Equal(t, DefaultBranch, fake.puts[1].Branch)
	assert.Equal(t, "second", fake.puts[1].Message)
	assert.Equal(t, "v2", fake.files["musicfree.json"])
}

func TestWriteAPIError(t *testing.T) {
	fake, client, target := setup(t)
	fake.failPut = http.StatusUnprocessableEntity

	_, err := client.Write(context.Background(), target, map[string][]byte{"musicfree.json": []byte("v1")}, "msg")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.False(t, errors.Is(err, remote.ErrUnreachable))
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := NewClient(WithBaseURL(base))
	_, err := client.Fetch(context.Background(), remote.Target{RepoURL: "alice/music"}, "musicfree.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrUnreachable), "connection failures must be reported as unreachable")
}

func TestInvalidRepoURL(t *testing.T) {
	client := NewClient()
	_, err := client.Fetch(context.Background(), remote.Target{RepoURL: "not a repo"}, "musicfree.json")
	assert.True(t, errors.Is(err, remote.ErrInvalidRepoURL))
}

func TestInfo(t *testing.T) {
	fake, client, target := setup(t)

	info, err := client.Info(context.Background(), target, "musicfree.json")
	require.NoError(t, err)
	assert.Nil(t, info)

	fake.files["musicfree.json"] = "12345"
	fake.shas["musicfree.json"] = "abc"
	info, err = client.Info(context.Background(), target, "musicfree.json")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "abc", info.SHA)
	assert.Equal(t, int64(5), info.Size)
	require.NotNil(t, info.LastModified)
	assert.Equal(t, 2026, info.LastModified.Year())
}
