package hlsbundle

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type trackWork func(ctx context.Context, sourcePath, outDir string, track TrackInfo) (*RenditionArtifact, error)

// ProcessTracks renders audio and subtitle tracks on a shared bounded worker pool.
// Failed tracks are logged and left out; the returned lists keep output index order.
func (p *Pipeline) ProcessTracks(ctx context.Context, sourcePath, outDir string, audioTracks, subtitleTracks []TrackInfo) (audio []RenditionArtifact, subtitle []RenditionArtifact) {
	g := new(errgroup.Group)
	g.SetLimit(p.config.Workers)

	audioResults := make([]*RenditionArtifact, len(audioTracks))
	for i, track := range audioTracks {
		p.schedule(ctx, g, sourcePath, outDir, track, p.createAudioTrack, &audioResults[i])
	}

	subtitleResults := make([]*RenditionArtifact, len(subtitleTracks))
	for i, track := range subtitleTracks {
		p.schedule(ctx, g, sourcePath, outDir, track, p.convertSubtitleTrack, &subtitleResults[i])
	}

	// workers never return errors
	_ = g.Wait()

	return compact(audioResults), compact(subtitleResults)
}

// CreateSynchronizedAudioTracks renders every audio track independently.
func (p *Pipeline) CreateSynchronizedAudioTracks(ctx context.Context, sourcePath, outDir string, tracks []TrackInfo) []RenditionArtifact {
	audio, _ := p.ProcessTracks(ctx, sourcePath, outDir, tracks, nil)
	return audio
}

// ConvertSubtitleTracks converts every subtitle track independently.
func (p *Pipeline) ConvertSubtitleTracks(ctx context.Context, sourcePath, outDir string, tracks []TrackInfo) []RenditionArtifact {
	_, subtitle := p.ProcessTracks(ctx, sourcePath, outDir, nil, tracks)
	return subtitle
}

func (p *Pipeline) schedule(ctx context.Context, g *errgroup.Group, sourcePath, outDir string, track TrackInfo, work trackWork, result **RenditionArtifact) {
	g.Go(func() error {
		// cancelled runs do not start new tools
		if ctx.Err() != nil {
			return nil
		}

		artifact, err := work(ctx, sourcePath, outDir, track)
		if err != nil {
			p.trackFailed(track, err)
			return nil
		}

		p.observer.TrackFinished(track.Kind, "done", true)
		*result = artifact
		return nil
	})
}

func (p *Pipeline) trackFailed(track TrackInfo, err error) {
	stage := "unknown"
	var trackErr *TrackError
	if errors.As(err, &trackErr) {
		stage = trackErr.Stage
	}

	logger := p.trackLogger(track)
	logger.Warn().
		Err(err).
		Str("stage", stage).
		Msg("track dropped")

	p.observer.TrackFinished(track.Kind, stage, false)
}

func (p *Pipeline) trackLogger(track TrackInfo) zerolog.Logger {
	return p.logger.With().
		Str("kind", string(track.Kind)).
		Int("index", track.OutputIndex).
		Int("source-index", track.SourceIndex).
		Str("language", track.Language).
		Logger()
}

//
// audio
//

func (p *Pipeline) createAudioTrack(ctx context.Context, sourcePath, outDir string, track TrackInfo) (*RenditionArtifact, error) {
	logger := p.trackLogger(track)
	mediaPath := filepath.Join(outDir, AudioFileName(track.OutputIndex))

	tctx, cancel := context.WithTimeout(ctx, p.config.TranscodeTimeout)
	defer cancel()

	if err := CreateAudioRendition(tctx, p.cmd, p.config.FFmpegBinary, p.audioProfile(), sourcePath, track.SourceIndex, mediaPath); err != nil {
		return nil, trackError(track, "transcode", err)
	}

	sctx, cancel := context.WithTimeout(ctx, p.config.TranscodeTimeout)
	defer cancel()

	playlistPath := ""
	if _, err := SegmentAudio(sctx, p.cmd, p.config.FFmpegBinary, p.audioProfile(), p.config.SegmentDuration, mediaPath, outDir); err != nil {
		logger.Warn().Err(err).Str("stage", "segment").Msg("segmentation failed, falling back to single file playlist")

		fallbackPath := filepath.Join(outDir, AudioPlaylistName(track.OutputIndex))
		if err := p.writeSingleFilePlaylist(ctx, mediaPath, fallbackPath); err != nil {
			logger.Warn().Err(err).Str("stage", "fallback").Msg("referencing audio file directly")
		} else {
			playlistPath = fallbackPath
		}
	} else {
		playlistPath = ResolveAudioPlaylist(outDir, track.OutputIndex, p.config.AudioPlaylist)
	}

	artifact := &RenditionArtifact{
		Track:         track,
		MediaFilePath: mediaPath,
		PlaylistPath:  playlistPath,
	}

	logger.Info().Str("uri", artifact.URI()).Msg("audio track created")
	return artifact, nil
}

func (p *Pipeline) writeSingleFilePlaylist(ctx context.Context, mediaPath, playlistPath string) error {
	pctx, cancel := context.WithTimeout(ctx, p.config.ProbeTimeout)
	defer cancel()

	duration, err := ProbeDuration(pctx, p.cmd, p.config.FFprobeBinary, mediaPath)
	if err != nil {
		return err
	}

	return writeFileAtomic(playlistPath, []byte(SingleFilePlaylist(baseName(mediaPath), duration)))
}

//
// subtitles
//

func (p *Pipeline) convertSubtitleTrack(ctx context.Context, sourcePath, outDir string, track TrackInfo) (*RenditionArtifact, error) {
	if isBitmapSubtitle(track.Codec) {
		return nil, trackError(track, "convert", ErrBitmapSubtitle)
	}

	outPath := filepath.Join(outDir, SubtitleFileName(track.OutputIndex))

	tctx, cancel := context.WithTimeout(ctx, p.config.TranscodeTimeout)
	defer cancel()

	if err := ConvertToWebVTT(tctx, p.cmd, p.config.FFmpegBinary, sourcePath, track.SourceIndex, outPath); err != nil {
		return nil, trackError(track, "convert", err)
	}

	logger := p.trackLogger(track)
	logger.Info().Str("uri", baseName(outPath)).Msg("subtitle track converted")
	return &RenditionArtifact{
		Track:         track,
		MediaFilePath: outPath,
	}, nil
}

func compact(results []*RenditionArtifact) []RenditionArtifact {
	artifacts := []RenditionArtifact{}
	for _, result := range results {
		if result != nil {
			artifacts = append(artifacts, *result)
		}
	}
	return artifacts
}
