package remote

import (
	"errors"
	"io"
	"testing"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Repo
		wantErr bool
	}{
		{name: "https", input: "https://github.com/alice/music", want: Repo{"alice", "music"}},
		{name: "https with .git", input: "https://github.com/alice/music.git", want: Repo{"alice", "music"}},
		{name: "http", input: "http://github.com/alice/music", want: Repo{"alice", "music"}},
		{name: "trailing slash", input: "https://github.com/alice/music/", want: Repo{"alice", "music"}},
		{name: "short form", input: "alice/music", want: Repo{"alice", "music"}},
		{name: "empty", input: "", wantErr: true},
		{name: "owner only", input: "https://github.com/alice", wantErr: true},
		{name: "too deep", input: "https://github.com/alice/music/tree/main", wantErr: true},
		{name: "ssh scheme", input: "ssh://github.com/alice/music", wantErr: true},
		{name: "only .git", input: "alice/.git", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRepoURL(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRepoURL) {
					t.Fatalf("expected ErrInvalidRepoURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error but got %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestUnreachableKeepsBothCauses(t *testing.T) {
	err := Unreachable("fetch musicfree.json", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrUnreachable) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("wrapped error lost a cause: %v", err)
	}
}

func TestCloneURL(t *testing.T) {
	r := Repo{Owner: "alice", Name: "music"}
	if got := r.CloneURL(""); got != "https://github.com/alice/music.git" {
		t.Fatalf("unexpected clone url %q", got)
	}
	if got := r.CloneURL("git.example.com"); got != "https://git.example.com/alice/music.git" {
		t.Fatalf("unexpected clone url %q", got)
	}
}
