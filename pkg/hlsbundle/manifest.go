package hlsbundle

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

const (
	AudioGroupID    = "audio"
	SubtitleGroupID = "subtitles"

	tagStreamInf       = "#EXT-X-STREAM-INF:"
	tagIFrameStreamInf = "#EXT-X-I-FRAME-STREAM-INF:"
	tagMedia           = "#EXT-X-MEDIA:"
)

var (
	audioAttrRegex    = regexp.MustCompile(`,?AUDIO="` + AudioGroupID + `"`)
	subtitleAttrRegex = regexp.MustCompile(`,?SUBTITLES="` + SubtitleGroupID + `"`)
	groupIDRegex      = regexp.MustCompile(`(?:^|[:,])GROUP-ID="([^"]*)"`)
)

// Manifest is an HLS master playlist as an ordered list of lines.
type Manifest []string

func ParseManifest(text string) Manifest {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return Manifest{}
	}
	return Manifest(strings.Split(text, "\n"))
}

func (m Manifest) String() string {
	return strings.Join(m, "\n") + "\n"
}

func (m Manifest) VariantCount() int {
	count := 0
	for _, line := range m {
		if strings.HasPrefix(line, tagStreamInf) {
			count++
		}
	}
	return count
}

// Validate parses the manifest as a multivariant playlist.
func (m Manifest) Validate() error {
	pl, err := playlist.Unmarshal([]byte(m.String()))
	if err != nil {
		return err
	}
	if _, ok := pl.(*playlist.Multivariant); !ok {
		return fmt.Errorf("not a multivariant playlist")
	}
	return nil
}

// EnhanceMasterManifest declares the audio and subtitle renditions as alternate
// groups of the packager's manifest and references them from every variant stream.
// Applying it to its own output yields the same manifest.
func EnhanceMasterManifest(raw Manifest, audio []RenditionArtifact, subtitle []RenditionArtifact) Manifest {
	audio = sortedArtifacts(audio)
	subtitle = sortedArtifacts(subtitle)

	declarations := []string{}
	for i, artifact := range audio {
		declarations = append(declarations, audioDeclaration(artifact, i == 0))
	}
	for _, artifact := range subtitle {
		declarations = append(declarations, subtitleDeclaration(artifact))
	}

	enhanced := make(Manifest, 0, len(raw)+len(declarations)+1)
	if len(raw) == 0 || strings.TrimSpace(raw[0]) != "#EXTM3U" {
		enhanced = append(enhanced, "#EXTM3U")
	}

	inserted := false
	for _, line := range raw {
		// declarations of our groups are always regenerated
		if strings.HasPrefix(line, tagMedia) && isOwnGroup(line) {
			continue
		}

		if !inserted && isBodyLine(line) {
			enhanced = append(enhanced, declarations...)
			inserted = true
		}

		if strings.HasPrefix(line, tagStreamInf) {
			line = audioAttrRegex.ReplaceAllString(line, "")
			line = subtitleAttrRegex.ReplaceAllString(line, "")
			line = strings.Replace(line, ":,", ":", 1)
			if len(audio) > 0 {
				line += `,AUDIO="` + AudioGroupID + `"`
			}
			if len(subtitle) > 0 {
				line += `,SUBTITLES="` + SubtitleGroupID + `"`
			}
		}

		enhanced = append(enhanced, line)
	}

	if !inserted {
		enhanced = append(enhanced, declarations...)
	}

	return enhanced
}

func audioDeclaration(artifact RenditionArtifact, first bool) string {
	attrs := []string{
		"TYPE=AUDIO",
		fmt.Sprintf(`GROUP-ID="%s"`, AudioGroupID),
		fmt.Sprintf(`NAME="%s"`, quoted(artifact.Track.DisplayName)),
	}
	if tag, ok := languageTag(artifact.Track.Language); ok {
		attrs = append(attrs, fmt.Sprintf(`LANGUAGE="%s"`, tag))
	}
	if first {
		attrs = append(attrs, "DEFAULT=YES", "AUTOSELECT=YES")
	} else {
		attrs = append(attrs, "AUTOSELECT=NO")
	}
	attrs = append(attrs,
		`CHANNELS="2"`,
		fmt.Sprintf(`URI="%s"`, quoted(artifact.URI())),
	)
	return tagMedia + strings.Join(attrs, ",")
}

func subtitleDeclaration(artifact RenditionArtifact) string {
	attrs := []string{
		"TYPE=SUBTITLES",
		fmt.Sprintf(`GROUP-ID="%s"`, SubtitleGroupID),
		fmt.Sprintf(`NAME="%s"`, quoted(artifact.Track.DisplayName)),
	}
	if tag, ok := languageTag(artifact.Track.Language); ok {
		attrs = append(attrs, fmt.Sprintf(`LANGUAGE="%s"`, tag))
	}
	attrs = append(attrs,
		"AUTOSELECT=NO",
		fmt.Sprintf(`URI="%s"`, quoted(artifact.URI())),
	)
	return tagMedia + strings.Join(attrs, ",")
}

func sortedArtifacts(artifacts []RenditionArtifact) []RenditionArtifact {
	sorted := append([]RenditionArtifact(nil), artifacts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Track.OutputIndex < sorted[j].Track.OutputIndex
	})
	return sorted
}

func isOwnGroup(line string) bool {
	matches := groupIDRegex.FindStringSubmatch(line)
	return len(matches) == 2 && (matches[1] == AudioGroupID || matches[1] == SubtitleGroupID)
}

// first line after the playlist header
func isBodyLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "#") {
		return true
	}
	return strings.HasPrefix(line, tagStreamInf) ||
		strings.HasPrefix(line, tagIFrameStreamInf) ||
		strings.HasPrefix(line, tagMedia)
}

// quoted-string values cannot carry double quotes or line breaks
func quoted(s string) string {
	return strings.NewReplacer(`"`, "'", "\r", " ", "\n", " ").Replace(s)
}
