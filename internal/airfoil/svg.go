package airfoil

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

// SVGPath renders c as an absolute path in chord units. y is negated so the
// suction side points up in SVG's y-down frame.
func SVGPath(c model.Contour) string {
	if len(c) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range c {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&b, "%s%.6f %.6f ", cmd, p.X, flipY(p.Y))
	}
	b.WriteString("Z")
	return b.String()
}

const svgMargin = 0.05

// WriteSVG writes a standalone SVG document holding the contour path, with
// a viewBox fitted to the contour plus a small margin.
func WriteSVG(w io.Writer, title string, c model.Contour) error {
	if len(c) == 0 {
		return fmt.Errorf("%w: empty contour", model.ErrMalformedGeometry)
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range c {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, flipY(p.Y)), max(maxY, flipY(p.Y))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.4f %.4f %.4f %.4f">`+"\n",
		minX-svgMargin, minY-svgMargin, maxX-minX+2*svgMargin, maxY-minY+2*svgMargin)
	fmt.Fprintf(bw, "<title>%s</title>\n", escapeXML(title))
	fmt.Fprintf(bw, `<path d="%s" fill="none" stroke="black" stroke-width="0.002"/>`+"\n", SVGPath(c))
	bw.WriteString("</svg>\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func flipY(y float64) float64 {
	if y == 0 {
		return 0
	}
	return -y
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func escapeXML(s string) string { return xmlEscaper.Replace(s) }
