package library

import "testing"

func audio(id, title string) Audio {
	return Audio{ID: id, Title: title, DownloadURL: "https://example.com/" + id, Platform: "Youtube"}
}

func track(id, title, path string) LocalAudio {
	return LocalAudio{Audio: audio(id, title), Path: path}
}

func playlist(id string, audios ...LocalAudio) LocalPlaylist {
	return LocalPlaylist{ID: id, Platform: "Youtube", Audios: audios}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		id       string
		expected Kind
	}{
		{FavoritePlaylistID, KindFavorites},
		{AudioPlaylistID, KindCatchAll},
		{"PLx123", KindRegular},
		{"", KindRegular},
	}

	for _, test := range tests {
		if got := KindOf(test.id); got != test.expected {
			t.Errorf("KindOf(%q) = %s, expected %s", test.id, got, test.expected)
		}
	}
}

func TestSortReservedKeepsRegularOrder(t *testing.T) {
	playlists := []LocalPlaylist{
		playlist("b"),
		playlist(AudioPlaylistID),
		playlist("a"),
		playlist(FavoritePlaylistID),
		playlist("c"),
	}

	SortReserved(playlists)

	want := []string{FavoritePlaylistID, AudioPlaylistID, "b", "a", "c"}
	for i, id := range want {
		if playlists[i].ID != id {
			t.Fatalf("position %d: expected %q, got %q", i, id, playlists[i].ID)
		}
	}
}

func TestConfigIsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected bool
	}{
		{"no playlists", Config{}, true},
		{"single empty playlist", Config{Playlists: []LocalPlaylist{playlist(AudioPlaylistID)}}, true},
		{"single playlist with audio", Config{Playlists: []LocalPlaylist{playlist("p", track("a1", "A", "/a1"))}}, false},
		{"two empty playlists", Config{Playlists: []LocalPlaylist{playlist("p"), playlist("q")}}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.IsEmpty(); got != tc.expected {
				t.Fatalf("IsEmpty() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestEqualTreatsNilAndEmptySlicesAlike(t *testing.T) {
	a := Config{Playlists: []LocalPlaylist{{ID: "p", Audios: nil}}}
	b := Config{Playlists: []LocalPlaylist{{ID: "p", Audios: []LocalAudio{}}}}
	if !a.Equal(b) {
		t.Fatalf("expected nil and empty audio lists to be equal")
	}
}

func TestEqualIsOrderSensitive(t *testing.T) {
	a := Config{Playlists: []LocalPlaylist{playlist("p", track("a1", "A", "/1"), track("a2", "B", "/2"))}}
	b := Config{Playlists: []LocalPlaylist{playlist("p", track("a2", "B", "/2"), track("a1", "A", "/1"))}}
	if a.Equal(b) {
		t.Fatalf("expected reordered audios to differ")
	}
}

func TestEqualComparesOptionalFields(t *testing.T) {
	d1, d2 := 12.5, 13.0
	base := track("a1", "A", "/1")

	withCover := base
	withCover.CoverPath = StringPtr("")
	if base.Equal(withCover) {
		t.Fatalf("nil cover path must differ from empty cover path")
	}

	first, second := base, base
	first.Audio.Duration = &d1
	second.Audio.Duration = &d2
	if first.Equal(second) {
		t.Fatalf("different durations must not be equal")
	}
	same := base
	same.Audio.Duration = &d1
	if !first.Equal(same) {
		t.Fatalf("equal durations behind distinct pointers must be equal")
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		playlists int
	}{
		{name: "valid", payload: `{"playlists":[{"id":"A","audios":[{"audio":{"id":"a1","title":"T"},"path":"/p","cover_path":null}],"platform":"File"}]}`, playlists: 1},
		{name: "key order does not matter", payload: `{"playlists":[{"platform":"File","audios":[],"id":"A"}]}`, playlists: 1},
		{name: "missing playlists", payload: `{"audios":[]}`, wantErr: true},
		{name: "playlists not array", payload: `{"playlists":{"id":"A"}}`, wantErr: true},
		{name: "null playlists", payload: `{"playlists":null}`, wantErr: true},
		{name: "not json", payload: `yjs-binary`, wantErr: true},
		{name: "empty", payload: ``, wantErr: true},
		{name: "drops playlists without id", payload: `{"playlists":[{"audios":[]},{"id":"B","audios":[]}]}`, playlists: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tc.payload))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error but got %v", err)
			}
			if len(cfg.Playlists) != tc.playlists {
				t.Fatalf("expected %d playlists, got %d", tc.playlists, len(cfg.Playlists))
			}
		})
	}
}

func TestMarshalParseKeepsDocument(t *testing.T) {
	d := 200.0
	cfg := Config{Playlists: []LocalPlaylist{
		{
			ID:        "A",
			Title:     "Road trip",
			CoverPath: StringPtr("covers/a.jpg"),
			Platform:  "Bilibili",
			Audios: []LocalAudio{{
				Audio:     Audio{ID: "a1", Title: "T", Cover: "https://c/a1.jpg", Platform: "Bilibili", Duration: &d},
				Path:      "audios/a1.mp3",
				CoverPath: nil,
			}},
		},
		{ID: AudioPlaylistID, Platform: "File"},
	}}

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if !parsed.Equal(cfg) {
		t.Fatalf("parsed config differs from original:\n%s", data)
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Config{Playlists: []LocalPlaylist{{ID: "p", CoverPath: StringPtr("c"), Audios: []LocalAudio{track("a1", "A", "/1")}}}}
	cp := cfg.Clone()
	cp.Playlists[0].Audios[0].Path = "/changed"
	*cp.Playlists[0].CoverPath = "changed"

	if cfg.Playlists[0].Audios[0].Path != "/1" || *cfg.Playlists[0].CoverPath != "c" {
		t.Fatalf("clone aliases the original config")
	}
}
