package config

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

type Bundle struct {
	Database  string
	MediaRoot string
	HLSDir    string

	FFmpegBinary  string
	FFprobeBinary string
	MP4HLSBinary  string

	Workers         int
	SegmentDuration int
	AudioBitrate    int // in kilobits
	AudioSampleRate int // in Hz
	AudioPlaylist   string

	RenditionContainer string
	RenditionCodec     string

	ProbeTimeout     time.Duration
	TranscodeTimeout time.Duration
	PackageTimeout   time.Duration
}

func (Bundle) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("database", "hlsbundle.db", "sqlite database with media records")
	if err := viper.BindPFlag("database", cmd.PersistentFlags().Lookup("database")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("media-root", ".", "root directory of media files, relative paths are resolved against it")
	if err := viper.BindPFlag("media-root", cmd.PersistentFlags().Lookup("media-root")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("hls-dir", "", "output directory of hls bundles (default <media-root>/hls)")
	if err := viper.BindPFlag("hls-dir", cmd.PersistentFlags().Lookup("hls-dir")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("ffmpeg-binary", "ffmpeg", "path to the ffmpeg binary")
	if err := viper.BindPFlag("ffmpeg-binary", cmd.PersistentFlags().Lookup("ffmpeg-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("ffprobe-binary", "ffprobe", "path to the ffprobe binary")
	if err := viper.BindPFlag("ffprobe-binary", cmd.PersistentFlags().Lookup("ffprobe-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("mp4hls-binary", "mp4hls", "path to the bento4 mp4hls binary")
	if err := viper.BindPFlag("mp4hls-binary", cmd.PersistentFlags().Lookup("mp4hls-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("workers", 0, "max concurrent audio and subtitle workers (0 = logical CPUs)")
	if err := viper.BindPFlag("workers", cmd.PersistentFlags().Lookup("workers")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("segment-duration", 4, "target segment duration in seconds")
	if err := viper.BindPFlag("segment-duration", cmd.PersistentFlags().Lookup("segment-duration")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("audio-bitrate", 128, "audio rendition bitrate in kilobits")
	if err := viper.BindPFlag("audio-bitrate", cmd.PersistentFlags().Lookup("audio-bitrate")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("audio-sample-rate", 48000, "audio rendition sample rate in Hz")
	if err := viper.BindPFlag("audio-sample-rate", cmd.PersistentFlags().Lookup("audio-sample-rate")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("audio-playlist", string(hlsbundle.PreferSegmented), "audio playlist referenced when both exist (segmented, single)")
	if err := viper.BindPFlag("audio-playlist", cmd.PersistentFlags().Lookup("audio-playlist")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("rendition-container", "mp4", "container of encoded video renditions to package")
	if err := viper.BindPFlag("rendition-container", cmd.PersistentFlags().Lookup("rendition-container")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("rendition-codec", "h264", "codec of encoded video renditions to package")
	if err := viper.BindPFlag("rendition-codec", cmd.PersistentFlags().Lookup("rendition-codec")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("probe-timeout", time.Minute, "timeout of a single ffprobe invocation")
	if err := viper.BindPFlag("probe-timeout", cmd.PersistentFlags().Lookup("probe-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("transcode-timeout", 30*time.Minute, "timeout of a single audio or subtitle ffmpeg invocation")
	if err := viper.BindPFlag("transcode-timeout", cmd.PersistentFlags().Lookup("transcode-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("package-timeout", time.Hour, "timeout of the video packager")
	if err := viper.BindPFlag("package-timeout", cmd.PersistentFlags().Lookup("package-timeout")); err != nil {
		return err
	}

	return nil
}

func (b *Bundle) Set() {
	b.Database = viper.GetString("database")
	b.MediaRoot = viper.GetString("media-root")
	if abs, err := filepath.Abs(b.MediaRoot); err == nil {
		b.MediaRoot = abs
	}

	b.HLSDir = viper.GetString("hls-dir")
	if b.HLSDir == "" {
		b.HLSDir = filepath.Join(b.MediaRoot, "hls")
	}

	b.FFmpegBinary = viper.GetString("ffmpeg-binary")
	b.FFprobeBinary = viper.GetString("ffprobe-binary")
	b.MP4HLSBinary = viper.GetString("mp4hls-binary")

	// 0 leaves the worker count to the pipeline
	b.Workers = viper.GetInt("workers")
	if b.Workers < 0 {
		b.Workers = 0
	}

	b.SegmentDuration = viper.GetInt("segment-duration")
	b.AudioBitrate = viper.GetInt("audio-bitrate")
	b.AudioSampleRate = viper.GetInt("audio-sample-rate")

	b.AudioPlaylist = viper.GetString("audio-playlist")
	switch hlsbundle.PlaylistPreference(b.AudioPlaylist) {
	case hlsbundle.PreferSegmented, hlsbundle.PreferSingle:
	default:
		log.Warn().Str("audio-playlist", b.AudioPlaylist).Msg("unknown audio playlist preference, using segmented")
		b.AudioPlaylist = string(hlsbundle.PreferSegmented)
	}

	b.RenditionContainer = viper.GetString("rendition-container")
	b.RenditionCodec = viper.GetString("rendition-codec")

	b.ProbeTimeout = viper.GetDuration("probe-timeout")
	b.TranscodeTimeout = viper.GetDuration("transcode-timeout")
	b.PackageTimeout = viper.GetDuration("package-timeout")
}

// Pipeline returns the core configuration.
func (b *Bundle) Pipeline() hlsbundle.Config {
	return hlsbundle.Config{
		HLSDir:             b.HLSDir,
		MediaRoot:          b.MediaRoot,
		FFmpegBinary:       b.FFmpegBinary,
		FFprobeBinary:      b.FFprobeBinary,
		MP4HLSBinary:       b.MP4HLSBinary,
		Workers:            b.Workers,
		SegmentDuration:    b.SegmentDuration,
		AudioBitrate:       b.AudioBitrate,
		AudioSampleRate:    b.AudioSampleRate,
		AudioPlaylist:      hlsbundle.PlaylistPreference(b.AudioPlaylist),
		RenditionContainer: b.RenditionContainer,
		RenditionCodec:     b.RenditionCodec,
		ProbeTimeout:       b.ProbeTimeout,
		TranscodeTimeout:   b.TranscodeTimeout,
		PackageTimeout:     b.PackageTimeout,
	}
}
