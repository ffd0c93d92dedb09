package hlsbundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/m1k1o/go-hlsbundle/internal/utils"
)

// how long to wait for pipes after the process group has been killed
const killWaitDelay = 5 * time.Second

// Command runs one external tool invocation to completion and returns its stdout.
type Command interface {
	Run(ctx context.Context, binary string, args ...string) ([]byte, error)
}

type ExecCommand struct {
	logger zerolog.Logger
}

func NewExecCommand() *ExecCommand {
	return &ExecCommand{
		logger: log.With().Str("module", "hlsbundle").Str("submodule", "exec").Logger(),
	}
}

func (e *ExecCommand) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	logger := e.logger.With().Str("binary", binary).Logger()

	cmd := exec.CommandContext(ctx, binary, args...)
	configureProcessGroup(cmd)
	cmd.WaitDelay = killWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, utils.LogWriter(logger))

	start := time.Now()
	logger.Debug().Strs("args", args).Msg("starting process")

	err := cmd.Run()
	if err != nil {
		// deadline or cancellation wins over the exit status caused by the kill
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", binary, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with code %d: %s", binary, exitErr.ExitCode(), lastLine(stderr.String()))
		}

		return nil, fmt.Errorf("%s: %w", binary, err)
	}

	logger.Debug().Dur("elapsed", time.Since(start)).Msg("process finished")
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
