package hlsbundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToWebVTT(t *testing.T) {
	dir := t.TempDir()
	cmd := newFakeCommand()
	outPath := filepath.Join(dir, SubtitleFileName(0))

	require.NoError(t, ConvertToWebVTT(context.Background(), cmd, "ffmpeg", "/src/movie.mkv", 3, outPath))

	calls := cmd.callsOf("ffmpeg")
	require.Len(t, calls, 1)
	assert.Equal(t, "0:3", argAfter(calls[0], "-map"))
	assert.Equal(t, "webvtt", argAfter(calls[0], "-c:s"))
	assert.True(t, hasArg(calls[0], "-y"))
}

func TestConvertToWebVTTFailure(t *testing.T) {
	dir := t.TempDir()

	cmd := newFakeCommand()
	cmd.failStreams["0:3"] = true
	assert.Error(t, ConvertToWebVTT(context.Background(), cmd, "ffmpeg", "/src/movie.mkv", 3, filepath.Join(dir, "a.vtt")))

	// tools exiting successfully with empty output still fail
	cmd = newFakeCommand()
	cmd.emptyOutputs = true
	assert.Error(t, ConvertToWebVTT(context.Background(), cmd, "ffmpeg", "/src/movie.mkv", 3, filepath.Join(dir, "b.vtt")))
}

func TestCheckOutputFile(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, checkOutputFile(filepath.Join(dir, "missing.vtt")))
	assert.Error(t, checkOutputFile(dir))

	empty := filepath.Join(dir, "empty.vtt")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	assert.Error(t, checkOutputFile(empty))

	full := filepath.Join(dir, "full.vtt")
	require.NoError(t, os.WriteFile(full, []byte("WEBVTT\n"), 0644))
	assert.NoError(t, checkOutputFile(full))
}

func TestIsBitmapSubtitle(t *testing.T) {
	assert.True(t, isBitmapSubtitle("hdmv_pgs_subtitle"))
	assert.True(t, isBitmapSubtitle("dvd_subtitle"))
	assert.False(t, isBitmapSubtitle("subrip"))
	assert.False(t, isBitmapSubtitle("ass"))
}
