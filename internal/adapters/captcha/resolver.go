// Package captcha turns image challenges into solved codes, preferring
// automatic recognition and degrading to manual entry when recognition is
// unavailable or keeps failing.
package captcha

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bnema/zepp-steps-cli/internal/domain"
	"github.com/bnema/zepp-steps-cli/internal/log"
	"github.com/bnema/zepp-steps-cli/internal/ports"
)

const (
	// recognitionPasses runs the recognizer several times per image and
	// keeps the plurality answer; recognizers are nondeterministic enough
	// for this to matter.
	recognitionPasses = 3
	// maxAutoAttempts bounds how many fresh challenges are burned before
	// handing the image to the operator.
	maxAutoAttempts = 5
)

// Fetcher retrieves fresh challenges from the remote service.
type Fetcher interface {
	FetchChallenge(ctx context.Context, kind string) (*domain.Challenge, error)
}

type Resolver struct {
	fetcher Fetcher
	engine  ports.OCREngine
	log     zerolog.Logger
}

// NewResolver builds a resolver. engine may be nil, in which case every
// challenge goes straight to manual entry.
func NewResolver(fetcher Fetcher, engine ports.OCREngine) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		engine:  engine,
		log:     log.WithComponent("captcha"),
	}
}

// Resolve fetches challenges until one is solved automatically or the attempt
// budget runs out. The returned challenge is unsolved (Code empty) when the
// operator has to read the image themselves; that is not an error.
func (r *Resolver) Resolve(ctx context.Context, kind string) (*domain.Challenge, error) {
	var last *domain.Challenge

	for attempt := 0; attempt < maxAutoAttempts; attempt++ {
		ch, err := r.fetcher.FetchChallenge(ctx, kind)
		if err != nil {
			return nil, err
		}
		last = ch

		if r.engine == nil {
			break
		}

		code, err := r.recognize(ctx, ch.Image)
		if errors.Is(err, ports.ErrOCRUnavailable) {
			r.log.Warn().Str("kind", kind).Msg("recognizer unavailable, manual entry required")
			break
		}
		if err != nil {
			return nil, err
		}
		if code != "" {
			ch.Code = code
			r.log.Debug().Str("kind", kind).Str("code", code).Int("attempt", attempt+1).Msg("challenge solved")
			return ch, nil
		}

		r.log.Debug().Str("kind", kind).Int("attempt", attempt+1).Msg("recognition empty, fetching fresh challenge")
	}

	return last, nil
}

// recognize runs the engine recognitionPasses times over the preprocessed
// image and returns the most frequent non-empty reading, first seen winning
// ties. Empty when every pass came back blank.
func (r *Resolver) recognize(ctx context.Context, image []byte) (string, error) {
	processed, err := preprocess(image)
	if err != nil {
		return "", err
	}

	counts := make(map[string]int)
	var order []string

	for i := 0; i < recognitionPasses; i++ {
		text, err := r.engine.Recognize(ctx, processed)
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			continue
		}
		if counts[text] == 0 {
			order = append(order, text)
		}
		counts[text]++
	}

	best, bestCount := "", 0
	for _, text := range order {
		if counts[text] > bestCount {
			best, bestCount = text, counts[text]
		}
	}
	return best, nil
}
