package hlsbundle

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type AudioProfile struct {
	Bitrate    int // in kilobits
	SampleRate int // in Hz
}

func (p AudioProfile) args() []string {
	return []string{
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", p.Bitrate),
		"-ac", "2", // Stereo output
		"-ar", fmt.Sprintf("%d", p.SampleRate),
	}
}

func AudioFileName(index int) string {
	return fmt.Sprintf("audio_%d.m4a", index)
}

func AudioPlaylistName(index int) string {
	return fmt.Sprintf("audio_%d.m3u8", index)
}

func AudioSegmentsPlaylistName(index int) string {
	return fmt.Sprintf("audio_%d_segments.m3u8", index)
}

// CreateAudioRendition transcodes exactly one audio stream to normalized stereo AAC.
// Timestamps are regenerated and shifted to start at zero, so that independently
// transcoded tracks stay in sync with the video renditions.
func CreateAudioRendition(ctx context.Context, cmd Command, ffmpegBinary string, profile AudioProfile, sourcePath string, streamIndex int, outPath string) error {
	args := []string{
		"-loglevel", "warning",
		"-nostdin",
		"-fflags", "+genpts", // Generate missing presentation timestamps
		"-i", sourcePath,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		"-vn", "-sn", "-dn",
	}
	args = append(args, profile.args()...)
	args = append(args,
		"-avoid_negative_ts", "make_zero",
		"-y", // Overwrite output file
		outPath,
	)

	if _, err := cmd.Run(ctx, ffmpegBinary, args...); err != nil {
		return err
	}

	return checkOutputFile(outPath)
}

// SegmentAudio chunks a normalized audio file into fixed duration segments,
// returning the path of the produced sub-playlist. On failure the partial
// playlist and segments are removed.
func SegmentAudio(ctx context.Context, cmd Command, ffmpegBinary string, profile AudioProfile, segmentDuration int, audioFilePath string, outDir string) (_ string, err error) {
	name := strings.TrimSuffix(filepath.Base(audioFilePath), filepath.Ext(audioFilePath))
	segmentPattern := filepath.Join(outDir, name+"_%03d.ts")
	playlistPath := filepath.Join(outDir, name+"_segments.m3u8")

	defer func() {
		if err != nil {
			removeSegmentOutputs(outDir, name)
		}
	}()

	args := []string{
		"-loglevel", "warning",
		"-nostdin",
		"-i", audioFilePath,
	}
	args = append(args, profile.args()...)
	args = append(args,
		"-hls_time", fmt.Sprintf("%d", segmentDuration),
		"-hls_list_size", "0", // Keep all segments
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", segmentPattern,
		"-f", "hls",
		"-y",
		playlistPath,
	)

	if _, err := cmd.Run(ctx, ffmpegBinary, args...); err != nil {
		return "", err
	}

	if err := checkOutputFile(playlistPath); err != nil {
		return "", err
	}

	return playlistPath, nil
}

// ffmpeg writes the playlist after every segment, so it may exist without ENDLIST
func removeSegmentOutputs(outDir, name string) {
	_ = os.Remove(filepath.Join(outDir, name+"_segments.m3u8"))

	segments, _ := filepath.Glob(filepath.Join(outDir, name+"_[0-9][0-9][0-9]*.ts"))
	for _, segment := range segments {
		_ = os.Remove(segment)
	}
}

// SingleFilePlaylist is a VOD playlist with the whole media file as its only segment.
func SingleFilePlaylist(mediaFileName string, duration time.Duration) string {
	seconds := duration.Seconds()

	playlist := []string{
		"#EXTM3U",
		"#EXT-X-VERSION:4",
		"#EXT-X-PLAYLIST-TYPE:VOD",
		fmt.Sprintf("#EXT-X-TARGETDURATION:%d", int(math.Ceil(seconds))),
		"#EXT-X-MEDIA-SEQUENCE:0",
		fmt.Sprintf("#EXTINF:%.3f,", seconds),
		mediaFileName,
		"#EXT-X-ENDLIST",
	}

	return strings.Join(playlist, "\n") + "\n"
}

// ResolveAudioPlaylist picks the sub-playlist of an audio track when more than
// one naming convention exists on disk. Empty string means none exists.
func ResolveAudioPlaylist(dir string, index int, pref PlaylistPreference) string {
	candidates := []string{AudioSegmentsPlaylistName(index), AudioPlaylistName(index)}
	if pref == PreferSingle {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}

	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Size() > 0 {
			return path
		}
	}

	return ""
}
