package hlsbundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackRecords(t *testing.T) {
	records := TrackRecords([]RenditionArtifact{
		testAudioArtifact(1, "fre", "French"),
		testAudioArtifact(0, "eng", "English"),
	})

	assert.Equal(t, []TrackRecord{
		{File: "audio_0.m4a", Language: "eng", Title: "English", Index: 0},
		{File: "audio_1.m4a", Language: "fre", Title: "French", Index: 1},
	}, records)
}

func TestWriteTrackRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SubtitleMetadataName)

	records := []TrackRecord{{File: "subtitle_0.vtt", Language: "eng", Title: "English", Index: 0}}
	require.NoError(t, WriteTrackRecords(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"file": "subtitle_0.vtt", "language": "eng", "title": "English", "index": 0}]`, string(data))

	read, err := ReadTrackRecords(path)
	require.NoError(t, err)
	assert.Equal(t, records, read)

	// no temporary files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteTrackRecordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), AudioMetadataName)
	require.NoError(t, WriteTrackRecords(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
