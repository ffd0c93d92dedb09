package hlsbundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const testPackagerManifest = `#EXTM3U
# Created with Bento4 mp4-hls.py version 1.2.0r637

#EXT-X-VERSION:4

# Media Playlists
#EXT-X-STREAM-INF:AVERAGE-BANDWIDTH=800000,BANDWIDTH=900000,CODECS="avc1.64001e",RESOLUTION=854x480
media-1/stream.m3u8
#EXT-X-STREAM-INF:AVERAGE-BANDWIDTH=2400000,BANDWIDTH=2800000,CODECS="avc1.64001f",RESOLUTION=1280x720
media-2/stream.m3u8
`

const testProbeOutput = `{
	"streams": [
		{"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720},
		{"index": 1, "codec_name": "ac3", "codec_type": "audio", "channels": 6, "sample_rate": "48000", "tags": {"language": "eng"}, "disposition": {"default": 1}},
		{"index": 2, "codec_name": "aac", "codec_type": "audio", "channels": 2, "sample_rate": "44100", "tags": {"language": "fre", "title": "French Commentary"}},
		{"index": 3, "codec_name": "subrip", "codec_type": "subtitle", "tags": {"language": "eng"}, "disposition": {"forced": 1}},
		{"index": 4, "codec_name": "hdmv_pgs_subtitle", "codec_type": "subtitle", "tags": {"language": "ger"}}
	],
	"format": {"duration": "5400.250000"}
}`

const testDurationOutput = `{"streams": [], "format": {"duration": "12.500000"}}`

// fakeCommand emulates the external tools by writing the files they would produce.
type fakeCommand struct {
	mu    sync.Mutex
	calls [][]string

	probeOutput string
	probeErr    error

	failStreams    map[string]bool // "0:<index>" of failing ffmpeg invocations
	failSegment    bool
	partialSegment bool // failing segmenter leaves a playlist and a segment behind
	failPackage    bool
	emptyOutputs   bool

	// packaging signals packageStarted and waits for cancellation
	blockPackage   bool
	packageStarted chan struct{}
}

func newFakeCommand() *fakeCommand {
	return &fakeCommand{
		probeOutput: testProbeOutput,
		failStreams: map[string]bool{},
	}
}

func (f *fakeCommand) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{binary}, args...))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch binary {
	case "ffprobe":
		input := args[len(args)-1]
		if strings.HasSuffix(input, ".m4a") {
			return []byte(testDurationOutput), nil
		}
		if f.probeErr != nil {
			return nil, f.probeErr
		}
		return []byte(f.probeOutput), nil

	case "ffmpeg":
		out := args[len(args)-1]
		if hasArg(args, "hls") && f.failSegment {
			if f.partialSegment {
				segment := fmt.Sprintf(argAfter(args, "-hls_segment_filename"), 0)
				if err := os.WriteFile(segment, []byte("data"), 0644); err != nil {
					return nil, err
				}
				partial := "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.000,\n" + filepath.Base(segment) + "\n"
				if err := os.WriteFile(out, []byte(partial), 0644); err != nil {
					return nil, err
				}
			}
			return nil, errors.New("ffmpeg exited with code 1: segmenter failed")
		}
		if stream := argAfter(args, "-map"); f.failStreams[stream] {
			return nil, fmt.Errorf("ffmpeg exited with code 1: stream %s failed", stream)
		}
		if f.emptyOutputs {
			return nil, os.WriteFile(out, nil, 0644)
		}
		return nil, os.WriteFile(out, []byte("data"), 0644)

	case "mp4hls":
		if f.failPackage {
			return nil, errors.New("mp4hls exited with code 1: invalid input")
		}
		if f.blockPackage {
			close(f.packageStarted)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		outDir := strings.TrimPrefix(args[1], "--output-dir=")
		return nil, os.WriteFile(filepath.Join(outDir, MasterPlaylistName), []byte(testPackagerManifest), 0644)
	}

	return nil, fmt.Errorf("%s: executable file not found", binary)
}

func (f *fakeCommand) callsOf(binary string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	calls := [][]string{}
	for _, call := range f.calls {
		if call[0] == binary {
			calls = append(calls, call[1:])
		}
	}
	return calls
}

func hasArg(args []string, value string) bool {
	for _, arg := range args {
		if arg == value {
			return true
		}
	}
	return false
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
