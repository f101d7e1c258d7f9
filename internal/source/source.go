// Package source defines where raw airfoil coordinates come from.
package source

import (
	"context"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

// Source returns the raw coordinate document for an airfoil code. Missing
// airfoils fail with model.ErrNotFound, transport and decoding problems with
// model.ErrSourceUnavailable.
type Source interface {
	Fetch(ctx context.Context, code string) (model.Document, error)
}

type Func func(ctx context.Context, code string) (model.Document, error)

func (f Func) Fetch(ctx context.Context, code string) (model.Document, error) {
	return f(ctx, code)
}
