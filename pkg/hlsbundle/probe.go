package hlsbundle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type probeOutput struct {
	Streams []struct {
		Index       *int              `json:"index"`
		CodecName   string            `json:"codec_name"`
		CodecType   string            `json:"codec_type"`
		Channels    int               `json:"channels"`
		SampleRate  string            `json:"sample_rate"`
		Width       int               `json:"width"`
		Height      int               `json:"height"`
		Tags        map[string]string `json:"tags"`
		Disposition struct {
			Default int `json:"default"`
			Forced  int `json:"forced"`
		} `json:"disposition"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func runProbe(ctx context.Context, cmd Command, ffprobeBinary string, inputFilePath string) (*probeOutput, error) {
	args := []string{
		"-v", "error", // Hide debug information
		"-show_format",  // Show container information
		"-show_streams", // Show codec information
		"-of", "json",
		inputFilePath,
	}

	stdout, err := cmd.Run(ctx, ffprobeBinary, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbe, err)
	}

	out := probeOutput{}
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, fmt.Errorf("%w: unable to parse output: %v", ErrProbe, err)
	}

	return &out, nil
}

// ProbeStreams lists all streams of the media file in probe order.
func ProbeStreams(ctx context.Context, cmd Command, ffprobeBinary string, inputFilePath string) ([]StreamDescriptor, error) {
	out, err := runProbe(ctx, cmd, ffprobeBinary, inputFilePath)
	if err != nil {
		return nil, err
	}

	streams := make([]StreamDescriptor, 0, len(out.Streams))
	for i, stream := range out.Streams {
		index := i
		if stream.Index != nil {
			index = *stream.Index
		}

		language := languageFromTags(stream.Tags)
		if language == "" {
			language = "unknown"
		}

		sampleRate, _ := strconv.Atoi(strings.TrimSpace(stream.SampleRate))

		streams = append(streams, StreamDescriptor{
			Index:      index,
			CodecType:  codecType(stream.CodecType),
			CodecName:  stream.CodecName,
			Language:   language,
			Title:      strings.TrimSpace(tag(stream.Tags, "title", "TITLE", "Title")),
			Channels:   stream.Channels,
			SampleRate: sampleRate,
			Width:      stream.Width,
			Height:     stream.Height,
			Default:    stream.Disposition.Default == 1,
			Forced:     stream.Disposition.Forced == 1,
		})
	}

	return streams, nil
}

// ProbeDuration returns the container duration of the media file.
func ProbeDuration(ctx context.Context, cmd Command, ffprobeBinary string, inputFilePath string) (time.Duration, error) {
	out, err := runProbe(ctx, cmd, ffprobeBinary, inputFilePath)
	if err != nil {
		return 0, err
	}

	if out.Format.Duration == "" {
		return 0, fmt.Errorf("%w: duration not reported", ErrProbe)
	}

	duration, err := time.ParseDuration(out.Format.Duration + "s")
	if err != nil {
		return 0, fmt.Errorf("%w: unable to parse format duration: %v", ErrProbe, err)
	}

	return duration, nil
}

func codecType(s string) CodecType {
	switch CodecType(strings.ToLower(s)) {
	case CodecAudio:
		return CodecAudio
	case CodecSubtitle:
		return CodecSubtitle
	case CodecVideo:
		return CodecVideo
	default:
		return CodecOther
	}
}

func tag(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			return value
		}
	}
	return ""
}

func languageFromTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		value := strings.TrimSpace(strings.ReplaceAll(tags[key], "\u0000", ""))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
