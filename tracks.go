package hlsbundle

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/m1k1o/go-hlsbundle/internal/store"
	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

func tracksTable(audio, subtitle []hlsbundle.TrackInfo) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Kind", "Output", "Source", "Language", "Name", "Codec", "Channels", "Flags"})

	for _, tracks := range [][]hlsbundle.TrackInfo{audio, subtitle} {
		for _, track := range tracks {
			channels := ""
			if track.Channels > 0 {
				channels = strconv.Itoa(track.Channels)
			}

			flags := []string{}
			if track.Default {
				flags = append(flags, "default")
			}
			if track.Forced {
				flags = append(flags, "forced")
			}

			tw.AppendRow(table.Row{
				track.Kind,
				track.OutputIndex,
				track.SourceIndex,
				track.Language,
				track.DisplayName,
				track.Codec,
				channels,
				strings.Join(flags, ","),
			})
		}
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}

// parseRendition reads path@height[:status], status defaults to success.
func parseRendition(spec string, codec string) (store.Encoding, error) {
	at := strings.LastIndex(spec, "@")
	if at <= 0 || at == len(spec)-1 {
		return store.Encoding{}, fmt.Errorf("rendition %q is not in format path@height[:status]", spec)
	}

	path, rest := spec[:at], spec[at+1:]
	status := string(hlsbundle.StatusSuccess)
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest, status = rest[:i], rest[i+1:]
	}

	switch hlsbundle.RenditionStatus(status) {
	case hlsbundle.StatusPending, hlsbundle.StatusRunning, hlsbundle.StatusSuccess, hlsbundle.StatusFailed:
	default:
		return store.Encoding{}, fmt.Errorf("rendition %q has unknown status %q", spec, status)
	}

	height, err := strconv.Atoi(strings.TrimSuffix(rest, "p"))
	if err != nil || height <= 0 {
		return store.Encoding{}, fmt.Errorf("rendition %q has invalid height %q", spec, rest)
	}

	return store.Encoding{
		Extension:  strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Codec:      codec,
		Resolution: height,
		Status:     status,
		MediaFile:  path,
	}, nil
}
