package hlsbundle

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
)

type PlaylistPreference string

const (
	// prefer audio_{i}_segments.m3u8 over audio_{i}.m3u8
	PreferSegmented PlaylistPreference = "segmented"
	// prefer audio_{i}.m3u8 over audio_{i}_segments.m3u8
	PreferSingle PlaylistPreference = "single"
)

type Config struct {
	HLSDir    string // bundles are published to HLSDir/<media>
	MediaRoot string // manifest path reported to the store is relative to this

	FFmpegBinary  string
	FFprobeBinary string
	MP4HLSBinary  string

	Workers int // max concurrent track workers

	SegmentDuration int // in seconds
	AudioBitrate    int // in kilobits
	AudioSampleRate int // in Hz
	AudioPlaylist   PlaylistPreference

	RenditionContainer string
	RenditionCodec     string

	ProbeTimeout     time.Duration
	TranscodeTimeout time.Duration // per audio/subtitle invocation
	PackageTimeout   time.Duration
}

func (c Config) withDefaultValues() Config {
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.FFprobeBinary == "" {
		c.FFprobeBinary = "ffprobe"
	}
	if c.MP4HLSBinary == "" {
		c.MP4HLSBinary = "mp4hls"
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers()
	}
	if c.SegmentDuration == 0 {
		c.SegmentDuration = 4
	}
	if c.AudioBitrate == 0 {
		c.AudioBitrate = 128
	}
	if c.AudioSampleRate == 0 {
		c.AudioSampleRate = 48000
	}
	if c.AudioPlaylist == "" {
		c.AudioPlaylist = PreferSegmented
	}
	if c.RenditionContainer == "" {
		c.RenditionContainer = "mp4"
	}
	if c.RenditionCodec == "" {
		c.RenditionCodec = "h264"
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 60 * time.Second
	}
	if c.TranscodeTimeout == 0 {
		c.TranscodeTimeout = 30 * time.Minute
	}
	if c.PackageTimeout == 0 {
		c.PackageTimeout = 60 * time.Minute
	}
	return c
}

// logical CPUs as seen by the host
func defaultWorkers() int {
	count, err := cpu.Counts(true)
	if err != nil || count <= 0 {
		return 1
	}
	return count
}

//
// streams & tracks
//

type CodecType string

const (
	CodecAudio    CodecType = "audio"
	CodecSubtitle CodecType = "subtitle"
	CodecVideo    CodecType = "video"
	CodecOther    CodecType = "other"
)

type StreamDescriptor struct {
	Index      int
	CodecType  CodecType
	CodecName  string
	Language   string // ISO-639 code or "unknown"
	Title      string
	Channels   int
	SampleRate int
	Width      int
	Height     int
	Default    bool
	Forced     bool
}

type TrackKind string

const (
	KindAudio    TrackKind = "audio"
	KindSubtitle TrackKind = "subtitle"
)

// Placeholder is the generic display name of a track kind.
func (k TrackKind) Placeholder() string {
	if k == KindSubtitle {
		return "Subtitle"
	}
	return "Audio Track"
}

type TrackInfo struct {
	Kind        TrackKind
	SourceIndex int
	OutputIndex int
	Language    string
	DisplayName string
	Codec       string

	// audio only
	Channels   int
	SampleRate int

	Default bool
	Forced  bool // subtitle only
}

type RenditionArtifact struct {
	Track         TrackInfo
	MediaFilePath string
	PlaylistPath  string // empty when the media file is referenced directly
}

// URI is the manifest-relative reference of the artifact.
func (a RenditionArtifact) URI() string {
	if a.PlaylistPath != "" {
		return baseName(a.PlaylistPath)
	}
	return baseName(a.MediaFilePath)
}

type PipelineResult struct {
	Success        bool
	AudioTracks    []TrackInfo
	SubtitleTracks []TrackInfo
	ManifestPath   string
}

//
// collaborators
//

type RenditionStatus string

const (
	StatusPending RenditionStatus = "pending"
	StatusRunning RenditionStatus = "running"
	StatusSuccess RenditionStatus = "success"
	StatusFailed  RenditionStatus = "fail"
)

// EncodedRendition is an already-encoded video variant owned by the media record store.
type EncodedRendition struct {
	Path       string
	Container  string
	Codec      string
	Resolution int
	Status     RenditionStatus
	Chunk      bool
}

type MediaStore interface {
	SourcePath(ctx context.Context, mediaID string) (string, error)
	EncodedRenditions(ctx context.Context, mediaID string) ([]EncodedRendition, error)
	SetManifest(ctx context.Context, mediaID string, manifestPath string) error
	SaveTracks(ctx context.Context, mediaID string, audio, subtitle []TrackInfo) error
}

// Observer receives pipeline outcomes, e.g. for metrics.
type Observer interface {
	RunFinished(result string, elapsed time.Duration)
	TrackFinished(kind TrackKind, stage string, ok bool)
}

type nopObserver struct{}

func (nopObserver) RunFinished(string, time.Duration)     {}
func (nopObserver) TrackFinished(TrackKind, string, bool) {}
