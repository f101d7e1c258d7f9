package airfoil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source"
)

// Loader builds geometries from a coordinate source.
type Loader struct {
	Source  source.Source
	Logger  *slog.Logger
	Options []Option
}

// Load fetches code and builds its geometry. Source errors are returned
// wrapped and no Geometry is created.
func (l *Loader) Load(ctx context.Context, code string) (*Geometry, error) {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}

	doc, err := l.Source.Fetch(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", code, err)
	}
	raw, err := doc.Points()
	if err != nil {
		observability.IncGeometryBuild("malformed")
		return nil, fmt.Errorf("airfoil %q: %w", code, err)
	}

	start := time.Now()
	g, err := Build(code, raw, l.Options...)
	if err != nil {
		observability.IncGeometryBuild("malformed")
		return nil, err
	}
	observability.IncGeometryBuild("ok")
	log.DebugContext(ctx, "geometry built",
		"code", code,
		"raw_points", raw.Len(),
		"contour_points", len(g.Contour()),
		"split", g.SplitMethod().String(),
		"duration", time.Since(start).String())
	return g, nil
}
