package syncer

import (
	"context"

	"musicfree/internal/library"
	"musicfree/internal/logging"
)

// DownloadReport counts the asset downloads of a pass.
type DownloadReport struct {
	Attempted int      `json:"attempted"`
	Failed    int      `json:"failed"`
	AudioIDs  []string `json:"audio_ids,omitempty"`
}

// newAudioIDs returns the ids of audios the remote introduced: catch-all
// additions plus the audios of remote-only playlists that no local playlist
// already holds.
func newAudioIDs(local, remoteCfg library.Config) library.IDSet {
	d := library.Compute(local, remoteCfg)
	ids := library.NewIDSet(d.AddedAudios.Sorted()...)

	held := local.AudioIDs()
	for _, p := range remoteCfg.Playlists {
		if !d.AddedPlaylists.Has(p.ID) {
			continue
		}
		for _, a := range p.Audios {
			if !held.Has(a.Audio.ID) {
				ids.Add(a.Audio.ID)
			}
		}
	}
	return ids
}

// downloadMissing fetches the assets the merged library references but this
// device lacks. Items run one after another; failures are logged and skipped.
// The returned config carries the paths of everything that was downloaded.
func (s *Syncer) downloadMissing(ctx context.Context, local, remoteCfg, merged library.Config) (library.Config, DownloadReport) {
	var report DownloadReport

	all := local.IsEmpty()
	var candidates library.IDSet
	if !all {
		candidates = newAudioIDs(local, remoteCfg)
	}

	out := merged.Clone()
	done := make(map[string]library.LocalAudio)

	for pi := range out.Playlists {
		p := &out.Playlists[pi]

		if p.Cover != "" && !s.present(ctx, p.CoverPath) {
			report.Attempted++
			path, err := s.assets.DownloadCover(ctx, p.Cover, p.Platform)
			if err != nil {
				report.Failed++
				logging.AssetFailure(ctx, "playlist_cover", p.ID, err)
			} else if path != "" {
				p.CoverPath = library.StringPtr(path)
			}
		}

		for ai := range p.Audios {
			a := &p.Audios[ai]
			id := a.Audio.ID
			if !all && !candidates.Has(id) {
				continue
			}
			if got, ok := done[id]; ok {
				a.Path = got.Path
				a.CoverPath = got.CoverPath
				continue
			}

			if a.Path == "" || !s.present(ctx, &a.Path) {
				report.Attempted++
				report.AudioIDs = append(report.AudioIDs, id)
				got, err := s.assets.DownloadAudio(ctx, a.Audio)
				if err != nil {
					report.Failed++
					logging.AssetFailure(ctx, "audio", id, err)
				} else {
					a.Path = got.Path
					if got.CoverPath != nil {
						a.CoverPath = got.CoverPath
					}
				}
			}

			if a.Audio.Cover != "" && !s.present(ctx, a.CoverPath) {
				report.Attempted++
				path, err := s.assets.DownloadCover(ctx, a.Audio.Cover, a.Audio.Platform)
				if err != nil {
					report.Failed++
					logging.AssetFailure(ctx, "audio_cover", id, err)
				} else if path != "" {
					a.CoverPath = library.StringPtr(path)
				}
			}

			done[id] = *a
		}
	}

	return out, report
}

// present reports whether path is set and exists. Check failures count as
// missing.
func (s *Syncer) present(ctx context.Context, path *string) bool {
	if path == nil || *path == "" {
		return false
	}
	ok, err := s.assets.PathExists(ctx, *path)
	if err != nil {
		logging.WithContext(ctx).Debug().Err(err).Str("path", *path).Msg("path check failed")
		return false
	}
	return ok
}
