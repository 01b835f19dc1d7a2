package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// commandRunner abstracts subprocess execution so pipeline tests run
// without ffmpeg installed.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command, returning stdout. On failure the error carries
// a stderr excerpt, which is where ffmpeg reports everything useful.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > maxStderrExcerpt {
			detail = detail[len(detail)-maxStderrExcerpt:]
		}
		return stdout.String(), fmt.Errorf("%s: %w: %s", name, err, detail)
	}
	return stdout.String(), nil
}

const maxStderrExcerpt = 512
