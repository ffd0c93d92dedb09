package hlsbundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/rs/zerolog"
)

const MasterPlaylistName = "master.m3u8"

// PackageVideoRenditions segments already-encoded video renditions into outDir and
// returns the packager's master manifest. The manifest knows nothing about
// alternate audio or subtitle tracks.
func PackageVideoRenditions(ctx context.Context, cmd Command, mp4hlsBinary string, segmentDuration int, outDir string, renditionPaths []string, logger zerolog.Logger) (Manifest, error) {
	if len(renditionPaths) == 0 {
		return nil, ErrNoRenditions
	}

	args := []string{
		fmt.Sprintf("--segment-duration=%d", segmentDuration),
		fmt.Sprintf("--output-dir=%s", outDir),
		"--force", // Allow output to existing directory
	}
	args = append(args, renditionPaths...)

	if _, err := cmd.Run(ctx, mp4hlsBinary, args...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackaging, err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, MasterPlaylistName))
	if err != nil {
		return nil, fmt.Errorf("%w: master manifest not produced: %v", ErrPackaging, err)
	}

	manifest := ParseManifest(string(data))
	if manifest.VariantCount() == 0 {
		return nil, fmt.Errorf("%w: master manifest has no variant streams", ErrPackaging)
	}

	if pl, err := playlist.Unmarshal(data); err != nil {
		logger.Warn().Err(err).Msg("packager manifest is not strictly valid")
	} else if mv, ok := pl.(*playlist.Multivariant); ok {
		logger.Info().
			Int("variants", len(mv.Variants)).
			Int("renditions", len(renditionPaths)).
			Msg("video renditions packaged")
	}

	return manifest, nil
}
