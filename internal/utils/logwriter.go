package utils

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogWriterCtx forwards output of external tools to the logger, one entry per line.
type LogWriterCtx struct {
	logger zerolog.Logger
}

func LogWriter(l zerolog.Logger) *LogWriterCtx {
	return &LogWriterCtx{
		logger: l,
	}
}

func (l LogWriterCtx) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.logger.Warn().Msg(line)
	}
	return len(p), nil
}
