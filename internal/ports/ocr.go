package ports

import (
	"context"
	"errors"
)

// ErrOCRUnavailable signals that no recognizer is configured or reachable.
// Challenge solving degrades to manual entry instead of failing.
var ErrOCRUnavailable = errors.New("ocr engine unavailable")

// OCREngine is the optional character-recognition capability used for
// challenge images. Implementations return the recognized text, which may be
// empty when nothing was read.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}
