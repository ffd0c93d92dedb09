package hlsbundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAudioArtifact(index int, language, name string) RenditionArtifact {
	return RenditionArtifact{
		Track: TrackInfo{
			Kind:        KindAudio,
			OutputIndex: index,
			Language:    language,
			DisplayName: name,
		},
		MediaFilePath: "/out/" + AudioFileName(index),
		PlaylistPath:  "/out/" + AudioSegmentsPlaylistName(index),
	}
}

func testSubtitleArtifact(index int, language, name string) RenditionArtifact {
	return RenditionArtifact{
		Track: TrackInfo{
			Kind:        KindSubtitle,
			OutputIndex: index,
			Language:    language,
			DisplayName: name,
		},
		MediaFilePath: "/out/" + SubtitleFileName(index),
	}
}

func linesWithPrefix(m Manifest, prefix string) []string {
	lines := []string{}
	for _, line := range m {
		if strings.HasPrefix(line, prefix) {
			lines = append(lines, line)
		}
	}
	return lines
}

func indexOfPrefix(m Manifest, prefix string) int {
	for i, line := range m {
		if strings.HasPrefix(line, prefix) {
			return i
		}
	}
	return -1
}

func TestParseManifest(t *testing.T) {
	m := ParseManifest("#EXTM3U\r\n#EXT-X-VERSION:4\r\n\r\n")
	assert.Equal(t, Manifest{"#EXTM3U", "#EXT-X-VERSION:4"}, m)
	assert.Equal(t, "#EXTM3U\n#EXT-X-VERSION:4\n", m.String())

	assert.Empty(t, ParseManifest(""))
	assert.Equal(t, 2, ParseManifest(testPackagerManifest).VariantCount())
}

func TestEnhanceMasterManifest(t *testing.T) {
	raw := ParseManifest(testPackagerManifest)
	audio := []RenditionArtifact{
		testAudioArtifact(1, "fre", "French"),
		testAudioArtifact(0, "eng", "English"),
	}
	subtitle := []RenditionArtifact{
		testSubtitleArtifact(0, "eng", "English"),
	}

	enhanced := EnhanceMasterManifest(raw, audio, subtitle)

	assert.Equal(t, "#EXTM3U", enhanced[0])

	audioLines := linesWithPrefix(enhanced, "#EXT-X-MEDIA:TYPE=AUDIO")
	require.Len(t, audioLines, 2)
	assert.Contains(t, audioLines[0], `NAME="English"`)
	assert.Contains(t, audioLines[0], "DEFAULT=YES")
	assert.Contains(t, audioLines[0], `URI="audio_0_segments.m3u8"`)
	assert.Contains(t, audioLines[1], `NAME="French"`)
	assert.Contains(t, audioLines[1], "AUTOSELECT=NO")
	assert.NotContains(t, audioLines[1], "DEFAULT=YES")

	subtitleLines := linesWithPrefix(enhanced, "#EXT-X-MEDIA:TYPE=SUBTITLES")
	require.Len(t, subtitleLines, 1)
	assert.Contains(t, subtitleLines[0], `GROUP-ID="subtitles"`)
	assert.Contains(t, subtitleLines[0], `URI="subtitle_0.vtt"`)

	assert.Equal(t, 1, strings.Count(enhanced.String(), "DEFAULT=YES"))

	streams := linesWithPrefix(enhanced, "#EXT-X-STREAM-INF:")
	require.Len(t, streams, 2)
	for _, line := range streams {
		assert.Equal(t, 1, strings.Count(line, `AUDIO="audio"`), line)
		assert.Equal(t, 1, strings.Count(line, `SUBTITLES="subtitles"`), line)
	}

	// declarations follow the header and precede the variants
	assert.Greater(t, indexOfPrefix(enhanced, "#EXT-X-MEDIA:"), indexOfPrefix(enhanced, "#EXT-X-VERSION:"))
	assert.Less(t, indexOfPrefix(enhanced, "#EXT-X-MEDIA:"), indexOfPrefix(enhanced, "#EXT-X-STREAM-INF:"))

	// variant URIs are untouched
	assert.Contains(t, enhanced, "media-1/stream.m3u8")
	assert.Contains(t, enhanced, "media-2/stream.m3u8")
}

func TestEnhanceMasterManifestIsIdempotent(t *testing.T) {
	raw := ParseManifest(testPackagerManifest)
	audio := []RenditionArtifact{testAudioArtifact(0, "eng", "English")}
	subtitle := []RenditionArtifact{testSubtitleArtifact(0, "eng", "English")}

	once := EnhanceMasterManifest(raw, audio, subtitle)
	twice := EnhanceMasterManifest(once, audio, subtitle)
	assert.Equal(t, once, twice)

	// regenerating with fewer tracks removes stale declarations
	withoutSubtitles := EnhanceMasterManifest(once, audio, nil)
	assert.NotContains(t, withoutSubtitles.String(), "SUBTITLES")
	assert.Len(t, linesWithPrefix(withoutSubtitles, "#EXT-X-MEDIA:"), 1)
}

func TestEnhanceMasterManifestWithoutTracks(t *testing.T) {
	raw := ParseManifest(testPackagerManifest)

	enhanced := EnhanceMasterManifest(raw, nil, nil)
	assert.Equal(t, raw, enhanced)
	assert.Equal(t, testPackagerManifest, enhanced.String())
}

func TestEnhanceMasterManifestSubtitlesOnly(t *testing.T) {
	raw := ParseManifest(testPackagerManifest)

	enhanced := EnhanceMasterManifest(raw, nil, []RenditionArtifact{testSubtitleArtifact(0, "unknown", "Subtitle")})
	assert.NotContains(t, enhanced.String(), "AUDIO=")
	assert.NotContains(t, enhanced.String(), "DEFAULT=YES")

	subtitleLines := linesWithPrefix(enhanced, "#EXT-X-MEDIA:TYPE=SUBTITLES")
	require.Len(t, subtitleLines, 1)
	assert.NotContains(t, subtitleLines[0], "LANGUAGE=")

	for _, line := range linesWithPrefix(enhanced, "#EXT-X-STREAM-INF:") {
		assert.Contains(t, line, `SUBTITLES="subtitles"`)
	}
}

func TestEnhanceMasterManifestKeepsForeignGroups(t *testing.T) {
	raw := Manifest{
		"#EXTM3U",
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",NAME="Main",URI="main.m3u8"`,
		`#EXT-X-STREAM-INF:AUDIO="audio",BANDWIDTH=1000`,
		"stream.m3u8",
	}

	enhanced := EnhanceMasterManifest(raw, []RenditionArtifact{testAudioArtifact(0, "eng", "English")}, nil)

	assert.Contains(t, enhanced, `#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",NAME="Main",URI="main.m3u8"`)
	assert.Contains(t, enhanced, `#EXT-X-STREAM-INF:BANDWIDTH=1000,AUDIO="audio"`)
	assert.Len(t, linesWithPrefix(enhanced, "#EXT-X-MEDIA:"), 2)
}

func TestEnhanceMasterManifestAddsHeader(t *testing.T) {
	enhanced := EnhanceMasterManifest(Manifest{"#EXT-X-STREAM-INF:BANDWIDTH=1000", "stream.m3u8"}, nil, nil)
	assert.Equal(t, Manifest{"#EXTM3U", "#EXT-X-STREAM-INF:BANDWIDTH=1000", "stream.m3u8"}, enhanced)
}

func TestQuoted(t *testing.T) {
	assert.Equal(t, "Director's 'Cut' Track", quoted("Director's \"Cut\"\nTrack"))
}
