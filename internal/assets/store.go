// Package assets downloads audio files and cover images into the data
// directory and answers existence checks for the sync pipeline.
package assets

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog/log"

	"musicfree/internal/library"
)

const (
	audioDir = "audios"
	coverDir = "covers"

	defaultAudioExt = ".mp3"
	defaultCoverExt = ".jpg"
)

// ErrNoSource is returned when an item has no URL to download from.
var ErrNoSource = errors.New("no download url")

var contentTypeExt = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp3":  ".mp3",
	"audio/mp4":  ".m4a",
	"audio/aac":  ".aac",
	"audio/ogg":  ".ogg",
	"audio/webm": ".webm",
	"audio/flac": ".flac",
	"audio/wav":  ".wav",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store keeps downloaded assets on a billy filesystem. Paths handed out are
// relative to the filesystem root.
type Store struct {
	fs         billy.Filesystem
	httpClient *http.Client
}

// New creates a Store rooted at fs.
func New(fs billy.Filesystem, httpClient *http.Client) *Store {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 5 * time.Minute,
		}
	}
	return &Store{fs: fs, httpClient: httpClient}
}

// PathExists reports whether a regular file exists at p.
func (s *Store) PathExists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// DownloadAudio fetches the audio file and, when the audio has one, its
// cover. A cover failure is logged and leaves CoverPath nil.
func (s *Store) DownloadAudio(ctx context.Context, audio library.Audio) (library.LocalAudio, error) {
	if audio.DownloadURL == "" {
		return library.LocalAudio{}, fmt.Errorf("audio %s: %w", audio.ID, ErrNoSource)
	}

	base := path.Join(audioDir, sanitize(platformDir(audio.Platform)), sanitize(audio.ID))
	p, err := s.fetch(ctx, audio.DownloadURL, base, defaultAudioExt)
	if err != nil {
		return library.LocalAudio{}, fmt.Errorf("download audio %s: %w", audio.ID, err)
	}

	out := library.LocalAudio{Audio: audio, Path: p}
	if audio.Cover != "" {
		cover, err := s.DownloadCover(ctx, audio.Cover, audio.Platform)
		if err != nil {
			log.Warn().Err(err).Str("audio_id", audio.ID).Msg("cover download failed")
		} else {
			out.CoverPath = library.StringPtr(cover)
		}
	}
	return out, nil
}

// DownloadCover fetches an image into covers/<platform>/ under a name
// derived from its url. Already downloaded covers are not fetched again.
func (s *Store) DownloadCover(ctx context.Context, rawURL, platform string) (string, error) {
	if rawURL == "" {
		return "", ErrNoSource
	}
	sum := sha1.Sum([]byte(rawURL))
	base := path.Join(coverDir, sanitize(platformDir(platform)), hex.EncodeToString(sum[:]))

	ext := extFromURL(rawURL)
	if ext != "" {
		if ok, _ := s.PathExists(ctx, base+ext); ok {
			return base + ext, nil
		}
	}

	p, err := s.fetch(ctx, rawURL, base, defaultCoverExt)
	if err != nil {
		return "", fmt.Errorf("download cover: %w", err)
	}
	return p, nil
}

// Remove deletes the file at p. Missing files are not an error.
func (s *Store) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// fetch streams rawURL to base plus an extension picked from the url, the
// content type or fallback, writing through a temp file.
func (s *Store) fetch(ctx context.Context, rawURL, base, fallback string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "musicfree-sync")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	ext := extFromURL(rawURL)
	if ext == "" {
		ext = extFromContentType(resp.Header.Get("Content-Type"))
	}
	if ext == "" {
		ext = fallback
	}
	target := base + ext

	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	tmp, err := s.fs.TempFile(path.Dir(target), ".download-")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("rename %s: %w", target, err)
	}

	log.Debug().Str("url", rawURL).Str("path", target).Msg("asset downloaded")
	return target, nil
}

func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	return ext
}

func extFromContentType(ct string) string {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return contentTypeExt[mediaType]
}

func platformDir(platform string) string {
	if platform == "" {
		return strings.ToLower(library.DefaultPlatform)
	}
	return strings.ToLower(platform)
}

// sanitize keeps a path segment free of separators and dot-only names.
func sanitize(segment string) string {
	var b strings.Builder
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "_"
	}
	return out
}
