package hlsbundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrBitmapSubtitle = errors.New("bitmap subtitles cannot be converted to WebVTT")

// image based subtitle codecs, the text converter fails on them
var bitmapSubtitleCodecs = map[string]struct{}{
	"hdmv_pgs_subtitle": {},
	"dvd_subtitle":      {},
	"dvb_subtitle":      {},
	"xsub":              {},
}

func isBitmapSubtitle(codec string) bool {
	_, ok := bitmapSubtitleCodecs[codec]
	return ok
}

func SubtitleFileName(index int) string {
	return fmt.Sprintf("subtitle_%d.vtt", index)
}

// ConvertToWebVTT extracts exactly one subtitle stream as WebVTT, overwriting outPath.
func ConvertToWebVTT(ctx context.Context, cmd Command, ffmpegBinary string, sourcePath string, streamIndex int, outPath string) error {
	args := []string{
		"-loglevel", "warning",
		"-nostdin",
		"-i", sourcePath,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		"-c:s", "webvtt",
		"-y", // Overwrite output file
		outPath,
	}

	if _, err := cmd.Run(ctx, ffmpegBinary, args...); err != nil {
		return err
	}

	return checkOutputFile(outPath)
}

// checkOutputFile guards against tools that exit 0 on empty output.
func checkOutputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output not created: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return fmt.Errorf("output %s is empty", filepath.Base(path))
	}
	return nil
}

func baseName(path string) string {
	return filepath.Base(path)
}
