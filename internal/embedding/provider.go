package embedding

import (
	"context"
	"fmt"
)

// Provider turns text into an embedding vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Error is a provider failure for one text. The text travels with the error
// so batch callers can tell which input failed.
type Error struct {
	Text string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding %q: %v", e.Text, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
