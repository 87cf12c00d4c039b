package library

import "testing"

func ids(p LocalPlaylist) []string {
	out := make([]string, 0, len(p.Audios))
	for _, a := range p.Audios {
		out = append(out, a.Audio.ID)
	}
	return out
}

func playlistIDs(c Config) []string {
	out := make([]string, 0, len(c.Playlists))
	for _, p := range c.Playlists {
		out = append(out, p.ID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMergeIdenticalIsNoop(t *testing.T) {
	cfg := Config{Playlists: []LocalPlaylist{
		playlist(FavoritePlaylistID, track("a1", "A", "/1")),
		playlist(AudioPlaylistID, track("a1", "A", "/1"), track("a2", "B", "/2")),
		playlist("PL", track("x", "X", "/x")),
	}}

	merged := Merge(cfg, cfg.Clone(), Diff{})
	if !merged.Equal(cfg) {
		t.Fatalf("merging a config with itself must return it unchanged")
	}
}

func TestMergeLocalDeletionIsSticky(t *testing.T) {
	local := Config{Playlists: []LocalPlaylist{playlist("keep")}}
	remote := Config{Playlists: []LocalPlaylist{playlist("keep"), playlist("P", track("p1", "P1", "/p1"))}}
	mask := Diff{RemovedPlaylists: NewIDSet("P")}

	merged := Merge(local, remote, mask)
	if _, ok := merged.Playlist("P"); ok {
		t.Fatalf("locally deleted playlist resurrected from remote")
	}
}

func TestMergeLocallyDeletedAudioStaysDeleted(t *testing.T) {
	local := Config{Playlists: []LocalPlaylist{playlist(AudioPlaylistID, track("a1", "A", "/1"))}}
	remote := Config{Playlists: []LocalPlaylist{
		playlist(AudioPlaylistID, track("a1", "A", "/r1"), track("a2", "B", "/r2")),
		playlist("PL", track("a2", "B", "/r2"), track("a3", "C", "/r3")),
	}}
	mask := Diff{RemovedAudios: NewIDSet("a2")}

	merged := Merge(local, remote, mask)
	catchAll, _ := merged.Playlist(AudioPlaylistID)
	if !equalStrings(ids(catchAll), []string{"a1"}) {
		t.Fatalf("catch-all audios = %v", ids(catchAll))
	}
	pl, ok := merged.Playlist("PL")
	if !ok {
		t.Fatalf("remote-only playlist missing from merge")
	}
	if !equalStrings(ids(pl), []string{"a3"}) {
		t.Fatalf("remote-only playlist must drop locally deleted audios, got %v", ids(pl))
	}
}

func TestMergeKeepsLocalPathsAndRemoteMetadata(t *testing.T) {
	d := 180.0
	localAudio := LocalAudio{
		Audio:     Audio{ID: "a1", Title: "old title", DownloadURL: "https://old", Platform: "Youtube"},
		Path:      "/local/a1.mp3",
		CoverPath: StringPtr("/local/a1.jpg"),
	}
	remoteAudio := LocalAudio{
		Audio:     Audio{ID: "a1", Title: "new title", DownloadURL: "https://new", Cover: "https://cover", Platform: "Youtube", Duration: &d},
		Path:      "/other-device/a1.mp3",
		CoverPath: StringPtr("/other-device/a1.jpg"),
	}

	merged := Merge(
		Config{Playlists: []LocalPlaylist{playlist("P", localAudio)}},
		Config{Playlists: []LocalPlaylist{playlist("P", remoteAudio)}},
		Diff{},
	)

	got := merged.Playlists[0].Audios[0]
	if got.Path != localAudio.Path || *got.CoverPath != *localAudio.CoverPath {
		t.Fatalf("local paths overwritten: %+v", got)
	}
	if !got.Audio.Equal(remoteAudio.Audio) {
		t.Fatalf("expected remote metadata, got %+v", got.Audio)
	}
}

func TestMergeAudioOrder(t *testing.T) {
	local := Config{Playlists: []LocalPlaylist{playlist("P", track("c", "C", "/c"), track("a", "A", "/a"), track("l", "L", "/l"))}}
	remote := Config{Playlists: []LocalPlaylist{playlist("P", track("a", "A", "/a"), track("r1", "R1", "/r1"), track("c", "C", "/c"), track("r2", "R2", "/r2"))}}

	merged := Merge(local, remote, Diff{})
	want := []string{"c", "a", "l", "r1", "r2"}
	if got := ids(merged.Playlists[0]); !equalStrings(got, want) {
		t.Fatalf("audio order = %v, want %v", got, want)
	}
}

func TestMergePlaylistOrderAndReservedFirst(t *testing.T) {
	local := Config{Playlists: []LocalPlaylist{
		playlist("L2"),
		playlist(AudioPlaylistID),
		playlist("L1"),
	}}
	remote := Config{Playlists: []LocalPlaylist{
		playlist("R1"),
		playlist(FavoritePlaylistID, track("a1", "A", "/1")),
		playlist("L1"),
		playlist("R2"),
	}}

	merged := Merge(local, remote, Diff{})
	want := []string{FavoritePlaylistID, AudioPlaylistID, "L2", "L1", "R1", "R2"}
	if got := playlistIDs(merged); !equalStrings(got, want) {
		t.Fatalf("playlist order = %v, want %v", got, want)
	}
}

func TestMergePlaylistCoverPathFallback(t *testing.T) {
	lp := playlist("P")
	rp := playlist("P")
	rp.CoverPath = StringPtr("/remote/cover.jpg")

	merged := Merge(Config{Playlists: []LocalPlaylist{lp}}, Config{Playlists: []LocalPlaylist{rp}}, Diff{})
	if cp := merged.Playlists[0].CoverPath; cp == nil || *cp != "/remote/cover.jpg" {
		t.Fatalf("expected remote cover path fallback, got %v", cp)
	}

	lp.CoverPath = StringPtr("/local/cover.jpg")
	merged = Merge(Config{Playlists: []LocalPlaylist{lp}}, Config{Playlists: []LocalPlaylist{rp}}, Diff{})
	if cp := merged.Playlists[0].CoverPath; cp == nil || *cp != "/local/cover.jpg" {
		t.Fatalf("expected local cover path, got %v", cp)
	}
}

func TestMergeIgnoresMaskAdditions(t *testing.T) {
	local := Config{Playlists: []LocalPlaylist{playlist("P", track("a", "A", "/a"))}}
	mask := Diff{AddedPlaylists: NewIDSet("P"), ModifiedPlaylists: NewIDSet("P"), AddedAudios: NewIDSet("a")}

	merged := Merge(local, Config{}, mask)
	if !merged.Equal(local) {
		t.Fatalf("additions in the mask must not affect the merge")
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	local := Config{Playlists: []LocalPlaylist{playlist("P", track("a", "A", "/a"))}}
	remote := Config{Playlists: []LocalPlaylist{playlist("Q", track("b", "B", "/b"))}}

	merged := Merge(local, remote, Diff{})
	merged.Playlists[0].Audios[0].Path = "/mutated"
	merged.Playlists[1].Audios[0].Path = "/mutated"

	if local.Playlists[0].Audios[0].Path != "/a" || remote.Playlists[0].Audios[0].Path != "/b" {
		t.Fatalf("merge result aliases its inputs")
	}
}
