// Package execocr recognizes challenge images by shelling out to an external
// OCR command. The command receives the image on stdin and prints the
// recognized text on stdout.
package execocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bnema/zepp-steps-cli/internal/log"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

type Engine struct {
	command string
	args    []string
	log     zerolog.Logger
}

func New(command string, args ...string) *Engine {
	return &Engine{
		command: command,
		args:    args,
		log:     log.WithComponent("ocr"),
	}
}

func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if e.command == "" {
		return "", ports.ErrOCRUnavailable
	}

	path, err := exec.LookPath(e.command)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found", ports.ErrOCRUnavailable, e.command)
	}

	cmd := exec.CommandContext(ctx, path, e.args...)
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		e.log.Warn().Err(err).Str("command", e.command).Str("stderr", strings.TrimSpace(stderr.String())).Msg("ocr command failed")
		return "", fmt.Errorf("run %s: %w", e.command, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
