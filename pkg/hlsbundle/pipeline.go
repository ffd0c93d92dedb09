package hlsbundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var mediaIDRegex = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

type Pipeline struct {
	logger   zerolog.Logger
	config   Config
	store    MediaStore
	cmd      Command
	observer Observer
}

type Option func(p *Pipeline)

func WithCommand(cmd Command) Option {
	return func(p *Pipeline) {
		p.cmd = cmd
	}
}

func WithObserver(observer Observer) Option {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

func New(config Config, store MediaStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:   log.With().Str("module", "hlsbundle").Str("submodule", "pipeline").Logger(),
		config:   config.withDefaultValues(),
		store:    store,
		observer: nopObserver{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.cmd == nil {
		p.cmd = NewExecCommand()
	}

	return p
}

func (p *Pipeline) audioProfile() AudioProfile {
	return AudioProfile{
		Bitrate:    p.config.AudioBitrate,
		SampleRate: p.config.AudioSampleRate,
	}
}

// OutputDir is where the bundle of the media is published.
func (p *Pipeline) OutputDir(mediaID string) string {
	return filepath.Join(p.config.HLSDir, mediaID)
}

func ValidMediaID(mediaID string) bool {
	return mediaIDRegex.MatchString(mediaID)
}

//
// run
//

// Run produces the HLS bundle of the media. It fails only when the source is
// missing, no video can be packaged or the bundle cannot be written; missing
// audio or subtitle tracks degrade the result instead.
func (p *Pipeline) Run(ctx context.Context, mediaID string) (result *PipelineResult, err error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With().Str("media", mediaID).Str("run", runID).Logger()

	result = &PipelineResult{
		AudioTracks:    []TrackInfo{},
		SubtitleTracks: []TrackInfo{},
	}

	defer func() {
		p.observer.RunFinished(outcome(err), time.Since(start))
		if err != nil {
			logger.Err(err).Dur("elapsed", time.Since(start)).Msg("pipeline failed")
		}
	}()

	if !ValidMediaID(mediaID) {
		return result, fmt.Errorf("%w: %q", ErrInvalidMediaID, mediaID)
	}

	sourcePath, err := p.store.SourcePath(ctx, mediaID)
	if err != nil {
		return result, err
	}

	if _, err := os.Stat(sourcePath); err != nil {
		return result, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
	}

	audioTracks, subtitleTracks := p.DetectTracks(ctx, sourcePath)
	logger.Info().
		Int("audios", len(audioTracks)).
		Int("subtitles", len(subtitleTracks)).
		Msg("detected tracks")

	renditions, err := p.store.EncodedRenditions(ctx, mediaID)
	if err != nil {
		return result, fmt.Errorf("unable to list encoded renditions: %w", err)
	}

	renditionPaths := p.usableRenditions(renditions)
	if len(renditionPaths) == 0 {
		return result, ErrNoRenditions
	}

	if err := os.MkdirAll(p.config.HLSDir, 0755); err != nil {
		return result, fmt.Errorf("%w: %v", ErrManifestWrite, err)
	}

	lock := flock.New(filepath.Join(p.config.HLSDir, "."+mediaID+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("unable to lock media: %w", err)
	}
	if !locked {
		return result, ErrBusy
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("unable to release media lock")
		}
	}()

	stagingDir := filepath.Join(p.config.HLSDir, fmt.Sprintf(".%s.staging-%s", mediaID, runID))
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return result, fmt.Errorf("%w: %v", ErrManifestWrite, err)
	}

	published := false
	defer func() {
		if published {
			return
		}
		if err := os.RemoveAll(stagingDir); err != nil {
			logger.Warn().Err(err).Str("path", stagingDir).Msg("unable to remove staging directory")
		}
	}()

	manifest, audio, subtitle, err := p.process(ctx, sourcePath, stagingDir, renditionPaths, audioTracks, subtitleTracks, logger)
	if err != nil {
		return result, err
	}

	enhanced := EnhanceMasterManifest(manifest, audio, subtitle)
	if err := enhanced.Validate(); err != nil {
		logger.Warn().Err(err).Msg("synthesized manifest is not strictly valid")
	}

	if err := p.persist(stagingDir, enhanced, audio, subtitle); err != nil {
		return result, err
	}

	outDir := p.OutputDir(mediaID)
	manifestPath := filepath.Join(outDir, MasterPlaylistName)

	// the record is updated first, a failing store leaves the previous bundle in place
	if err := p.store.SetManifest(ctx, mediaID, p.relativeToMediaRoot(manifestPath)); err != nil {
		return result, fmt.Errorf("unable to update media record: %w", err)
	}

	audioTracks, subtitleTracks = trackInfos(audio), trackInfos(subtitle)
	if err := p.store.SaveTracks(ctx, mediaID, audioTracks, subtitleTracks); err != nil {
		logger.Warn().Err(err).Msg("unable to save track records")
	}

	if err := publish(stagingDir, outDir, runID); err != nil {
		return result, fmt.Errorf("%w: unable to publish bundle: %v", ErrManifestWrite, err)
	}
	published = true

	result.AudioTracks = audioTracks
	result.SubtitleTracks = subtitleTracks
	result.ManifestPath = manifestPath
	result.Success = true

	logger.Info().
		Int("audios", len(result.AudioTracks)).
		Int("subtitles", len(result.SubtitleTracks)).
		Str("manifest", result.ManifestPath).
		Dur("elapsed", time.Since(start)).
		Msg("hls bundle created")

	return result, nil
}

// process packages video and renders tracks concurrently into outDir. Packaging
// failure or removal of the source cancels all in-flight work.
func (p *Pipeline) process(ctx context.Context, sourcePath, outDir string, renditionPaths []string, audioTracks, subtitleTracks []TrackInfo, logger zerolog.Logger) (Manifest, []RenditionArtifact, []RenditionArtifact, error) {
	var (
		manifest Manifest
		audio    []RenditionArtifact
		subtitle []RenditionArtifact
	)

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.watchSource(gctx, done, sourcePath, logger)
	})

	g.Go(func() error {
		defer close(done)

		w, wctx := errgroup.WithContext(gctx)

		w.Go(func() (err error) {
			pctx, cancel := context.WithTimeout(wctx, p.config.PackageTimeout)
			defer cancel()

			manifest, err = PackageVideoRenditions(pctx, p.cmd, p.config.MP4HLSBinary, p.config.SegmentDuration, outDir, renditionPaths, logger)
			return err
		})

		w.Go(func() error {
			audio, subtitle = p.ProcessTracks(wctx, sourcePath, outDir, audioTracks, subtitleTracks)
			return nil
		})

		return w.Wait()
	})

	if err := g.Wait(); err != nil {
		// cancellation of the run wins over the tool errors it caused
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, nil, ctxErr
		}
		return nil, nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	return manifest, audio, subtitle, nil
}

// watchSource fails when the source file disappears before done is closed.
func (p *Pipeline) watchSource(ctx context.Context, done <-chan struct{}, sourcePath string, logger zerolog.Logger) error {
	wait := func() error {
		select {
		case <-done:
		case <-ctx.Done():
		}
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn().Err(err).Msg("unable to watch source, continuing unwatched")
		return wait()
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(sourcePath)); err != nil {
		logger.Warn().Err(err).Msg("unable to watch source directory, continuing unwatched")
		return wait()
	}

	sourcePath = filepath.Clean(sourcePath)
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return wait()
			}
			if filepath.Clean(event.Name) != sourcePath || !event.Has(fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			if _, err := os.Stat(sourcePath); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s removed while processing", ErrSourceNotFound, sourcePath)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return wait()
			}
			logger.Warn().Err(err).Msg("source watcher error")
		}
	}
}

func (p *Pipeline) persist(dir string, manifest Manifest, audio, subtitle []RenditionArtifact) error {
	if err := writeFileAtomic(filepath.Join(dir, MasterPlaylistName), []byte(manifest.String())); err != nil {
		return fmt.Errorf("%w: %v", ErrManifestWrite, err)
	}

	if err := WriteTrackRecords(filepath.Join(dir, AudioMetadataName), TrackRecords(audio)); err != nil {
		return fmt.Errorf("%w: audio metadata: %v", ErrManifestWrite, err)
	}

	if err := WriteTrackRecords(filepath.Join(dir, SubtitleMetadataName), TrackRecords(subtitle)); err != nil {
		return fmt.Errorf("%w: subtitle metadata: %v", ErrManifestWrite, err)
	}

	return nil
}

// publish swaps the staging directory into place of the previous bundle.
func publish(stagingDir, outDir, runID string) error {
	oldDir := ""
	if _, err := os.Stat(outDir); err == nil {
		oldDir = filepath.Join(filepath.Dir(outDir), fmt.Sprintf(".%s.old-%s", filepath.Base(outDir), runID))
		if err := os.Rename(outDir, oldDir); err != nil {
			return err
		}
	}

	if err := os.Rename(stagingDir, outDir); err != nil {
		if oldDir != "" {
			_ = os.Rename(oldDir, outDir)
		}
		return err
	}

	if oldDir != "" {
		return os.RemoveAll(oldDir)
	}

	return nil
}

//
// tracks & renditions
//

// DetectTracks probes the source. A failing probe yields no tracks, so that
// a video-only bundle can still be produced.
func (p *Pipeline) DetectTracks(ctx context.Context, sourcePath string) (audio []TrackInfo, subtitle []TrackInfo) {
	pctx, cancel := context.WithTimeout(ctx, p.config.ProbeTimeout)
	defer cancel()

	streams, err := ProbeStreams(pctx, p.cmd, p.config.FFprobeBinary, sourcePath)
	if err != nil {
		p.logger.Warn().Err(err).Str("source", sourcePath).Msg("unable to probe streams, continuing without audio and subtitle tracks")
		return []TrackInfo{}, []TrackInfo{}
	}

	return Classify(streams)
}

func trackInfos(artifacts []RenditionArtifact) []TrackInfo {
	tracks := make([]TrackInfo, 0, len(artifacts))
	for _, artifact := range artifacts {
		tracks = append(tracks, artifact.Track)
	}
	return tracks
}

func (p *Pipeline) usableRenditions(renditions []EncodedRendition) []string {
	usable := []EncodedRendition{}
	for _, rendition := range renditions {
		if !strings.EqualFold(rendition.Container, p.config.RenditionContainer) ||
			!strings.EqualFold(rendition.Codec, p.config.RenditionCodec) ||
			rendition.Chunk {
			continue
		}

		// running renditions are included so that the bundle is available early
		if rendition.Status != StatusSuccess && rendition.Status != StatusRunning {
			continue
		}

		if info, err := os.Stat(rendition.Path); err != nil || info.IsDir() {
			p.logger.Warn().Str("path", rendition.Path).Msg("encoded rendition file not found")
			continue
		}

		usable = append(usable, rendition)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Resolution < usable[j].Resolution
	})

	paths := make([]string, 0, len(usable))
	for _, rendition := range usable {
		paths = append(paths, rendition.Path)
	}

	return paths
}

func (p *Pipeline) relativeToMediaRoot(path string) string {
	if p.config.MediaRoot == "" {
		return path
	}

	rel, err := filepath.Rel(p.config.MediaRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}

	return rel
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, ErrPackaging):
		return "packaging_error"
	case errors.Is(err, ErrManifestWrite):
		return "manifest_write_error"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
