package library

import (
	"errors"
	"testing"
)

func TestAddPlaylistInsertsAfterReserved(t *testing.T) {
	cfg := Config{Playlists: []LocalPlaylist{
		playlist(FavoritePlaylistID, track("f", "F", "/f")),
		playlist(AudioPlaylistID),
		playlist("old"),
	}}

	out := AddPlaylist(cfg, playlist("new", track("n", "N", "/n")))

	want := []string{FavoritePlaylistID, AudioPlaylistID, "new", "old"}
	if got := playlistIDs(out); !equalStrings(got, want) {
		t.Fatalf("playlist order = %v, want %v", got, want)
	}
	if len(cfg.Playlists) != 3 {
		t.Fatalf("input config mutated")
	}
}

func TestAddPlaylistMergesExisting(t *testing.T) {
	existing := playlist("P", track("a", "A", "/a"), track("b", "B", "/b"))
	existing.CoverPath = StringPtr("/covers/p.jpg")
	cfg := Config{Playlists: []LocalPlaylist{playlist("Q"), existing}}

	incoming := playlist("P", LocalAudio{Audio: Audio{ID: "b", Title: "B (live)"}}, track("c", "C", "/c"))
	out := AddPlaylist(cfg, incoming)

	if out.Playlists[0].ID != "P" {
		t.Fatalf("merged playlist must move to the front, got %v", playlistIDs(out))
	}
	p := out.Playlists[0]
	if got := ids(p); !equalStrings(got, []string{"b", "c", "a"}) {
		t.Fatalf("audios = %v", got)
	}
	if p.Audios[0].Path != "/b" || p.Audios[0].Audio.Title != "B (live)" {
		t.Fatalf("existing audio lost its path or missed the new title: %+v", p.Audios[0])
	}
	if p.Audios[0].Audio.DownloadURL != "https://example.com/b" {
		t.Fatalf("empty incoming fields must not clear existing metadata")
	}
	if p.CoverPath == nil || *p.CoverPath != "/covers/p.jpg" {
		t.Fatalf("cover path not carried over")
	}
}

func TestDeletePlaylist(t *testing.T) {
	cfg := Config{Playlists: []LocalPlaylist{playlist(AudioPlaylistID), playlist("P", track("a", "A", "/a"))}}

	out, removed, err := DeletePlaylist(cfg, "P")
	if err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if removed == nil || removed.ID != "P" {
		t.Fatalf("expected removed playlist P, got %+v", removed)
	}
	if _, ok := out.Playlist("P"); ok {
		t.Fatalf("playlist still present")
	}

	if _, _, err := DeletePlaylist(cfg, AudioPlaylistID); !errors.Is(err, ErrReservedPlaylist) {
		t.Fatalf("expected ErrReservedPlaylist, got %v", err)
	}

	_, removed, err = DeletePlaylist(cfg, "missing")
	if err != nil || removed != nil {
		t.Fatalf("deleting unknown playlist should be a no-op, got %+v %v", removed, err)
	}
}

func TestAddAudiosCreatesCatchAll(t *testing.T) {
	out := AddAudios(Config{}, []LocalAudio{track("a", "A", "/a"), track("a", "A", "/a"), track("b", "B", "/b")})

	catchAll, ok := out.CatchAll()
	if !ok {
		t.Fatalf("catch-all playlist not created")
	}
	if got := ids(catchAll); !equalStrings(got, []string{"a", "b"}) {
		t.Fatalf("audios = %v", got)
	}

	out = AddAudios(out, []LocalAudio{track("c", "C", "/c"), track("a", "A", "/a2")})
	catchAll, _ = out.CatchAll()
	if got := ids(catchAll); !equalStrings(got, []string{"c", "a", "b"}) {
		t.Fatalf("audios = %v", got)
	}
	if catchAll.Audios[1].Path != "/a" {
		t.Fatalf("existing audio replaced")
	}
}

func TestDeleteAudio(t *testing.T) {
	cfg := Config{Playlists: []LocalPlaylist{
		playlist(FavoritePlaylistID, track("a", "A", "/a"), track("b", "B", "/b")),
		playlist(AudioPlaylistID, track("a", "A", "/a")),
		playlist("P", track("a", "A", "/a")),
	}}

	out, removed := DeleteAudio(cfg, "a", AudioPlaylistID)
	if removed == nil || removed.Path != "/a" {
		t.Fatalf("expected removed audio, got %+v", removed)
	}
	if IsFavorite(out, "a") {
		t.Fatalf("audio must leave favorites too")
	}
	catchAll, ok := out.CatchAll()
	if !ok || len(catchAll.Audios) != 0 {
		t.Fatalf("catch-all must survive empty")
	}
	if _, ok := out.Playlist("P"); !ok {
		t.Fatalf("unrelated playlist dropped")
	}

	out, _ = DeleteAudio(cfg, "a", "P")
	if _, ok := out.Playlist("P"); ok {
		t.Fatalf("emptied regular playlist must be dropped")
	}

	out, _ = DeleteAudio(cfg, "a", FavoritePlaylistID)
	if IsFavorite(out, "a") {
		t.Fatalf("audio still favorite")
	}
	if p, _ := out.Playlist("P"); len(p.Audios) != 1 {
		t.Fatalf("deleting from favorites must not touch other playlists")
	}
}

func TestToggleFavorite(t *testing.T) {
	a := track("a", "A", "/a")

	out, fav := ToggleFavorite(Config{Playlists: []LocalPlaylist{playlist("P", a)}}, a)
	if !fav || !IsFavorite(out, "a") {
		t.Fatalf("expected audio to become favorite")
	}
	if out.Playlists[0].ID != FavoritePlaylistID {
		t.Fatalf("favorites must be created at the front, got %v", playlistIDs(out))
	}

	out, fav = ToggleFavorite(out, a)
	if fav || IsFavorite(out, "a") {
		t.Fatalf("expected audio to be removed from favorites")
	}
	if _, ok := out.Playlist(FavoritePlaylistID); ok {
		t.Fatalf("empty favorites playlist must be dropped")
	}
}

func TestOrphanedPaths(t *testing.T) {
	cfg := Config{Playlists: []LocalPlaylist{
		playlist("Q", track("shared", "S", "/shared.mp3")),
	}}
	removed := []LocalAudio{
		track("shared", "S", "/shared.mp3"),
		{Audio: audio("x", "X"), Path: "/x.mp3", CoverPath: StringPtr("/x.jpg")},
		{Audio: audio("y", "Y"), Path: ""},
	}

	got := OrphanedPaths(cfg, StringPtr("/playlist.jpg"), removed)
	want := []string{"/x.mp3", "/x.jpg", "/playlist.jpg"}
	if !equalStrings(got, want) {
		t.Fatalf("orphaned = %v, want %v", got, want)
	}
}
