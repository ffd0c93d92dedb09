package hlsbundle

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// language code -> display name, shared by all naming call sites
var languageNames = map[string]string{
	"en": "English", "eng": "English",
	"ar": "Arabic", "ara": "Arabic",
	"fr": "French", "fra": "French", "fre": "French",
	"de": "German", "deu": "German", "ger": "German",
	"es": "Spanish", "spa": "Spanish",
	"it": "Italian", "ita": "Italian",
	"pt": "Portuguese", "por": "Portuguese",
	"ru": "Russian", "rus": "Russian",
	"ja": "Japanese", "jpn": "Japanese",
	"ko": "Korean", "kor": "Korean",
	"zh": "Chinese", "zho": "Chinese", "chi": "Chinese",
	"hin": "Hindi",
	"ben": "Bengali",
	"ind": "Indonesian",
	"pol": "Polish",
}

// LanguageName returns the display name of a known language code.
func LanguageName(code string) (string, bool) {
	name, ok := languageNames[strings.ToLower(strings.TrimSpace(code))]
	return name, ok
}

// DeriveDisplayName names a track. Language codes are trusted over titles,
// since authoring tools often fill titles with generic placeholders.
func DeriveDisplayName(lang, title string, kind TrackKind) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	title = strings.TrimSpace(title)

	if name, ok := languageNames[lang]; ok {
		return name
	}

	if utf8.RuneCountInString(title) > 2 && !strings.HasPrefix(title, kind.Placeholder()) {
		return title
	}

	if lang != "" {
		return strings.ToUpper(lang)
	}

	return kind.Placeholder()
}

// Classify splits streams into audio and subtitle tracks. Output indexes are
// dense and assigned in probe order, independently per kind.
func Classify(streams []StreamDescriptor) (audio []TrackInfo, subtitle []TrackInfo) {
	audio = []TrackInfo{}
	subtitle = []TrackInfo{}

	for _, stream := range streams {
		var kind TrackKind
		switch stream.CodecType {
		case CodecAudio:
			kind = KindAudio
		case CodecSubtitle:
			kind = KindSubtitle
		default:
			continue
		}

		codec := stream.CodecName
		if codec == "" {
			codec = "unknown"
		}

		track := TrackInfo{
			Kind:        kind,
			SourceIndex: stream.Index,
			Language:    stream.Language,
			DisplayName: DeriveDisplayName(stream.Language, stream.Title, kind),
			Codec:       codec,
			Default:     stream.Default,
		}

		if kind == KindAudio {
			track.OutputIndex = len(audio)
			track.Channels = stream.Channels
			track.SampleRate = stream.SampleRate
			audio = append(audio, track)
		} else {
			track.OutputIndex = len(subtitle)
			track.Forced = stream.Forced
			subtitle = append(subtitle, track)
		}
	}

	return
}

// languageTag converts a probe language code to a BCP-47 tag for the manifest.
func languageTag(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "unknown") {
		return "", false
	}

	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return "", false
	}

	return tag.String(), true
}
