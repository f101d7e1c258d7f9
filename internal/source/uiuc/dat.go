package uiuc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

// ParseDat reads a catalog .dat file. Lines with exactly two numeric fields
// become coordinates; short numeric pairs such as "17.  17." are point-count
// headers and are skipped, as is anything that does not parse. When the
// payload is not valid UTF-8 the first line, which holds the free-text name,
// is dropped before parsing.
func ParseDat(code string, payload []byte) model.Document {
	if !utf8.Valid(payload) {
		if i := bytes.IndexByte(payload, '\n'); i >= 0 {
			payload = payload[i+1:]
		} else {
			payload = nil
		}
	}

	doc := model.Document{Code: code, X: []float64{}, Y: []float64{}}
	sc := bufio.NewScanner(bytes.NewReader(payload))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) != 2 {
			continue
		}
		if isCountHeader(f[0], f[1]) {
			continue
		}
		x, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			continue
		}
		y, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			continue
		}
		doc.X = append(doc.X, x)
		doc.Y = append(doc.Y, y)
	}
	return doc
}

func isCountHeader(a, b string) bool {
	return len(strings.ReplaceAll(a, ".", ""))+len(strings.ReplaceAll(b, ".", "")) <= 6
}

// WriteDat writes name followed by one "x y" line per contour point, which
// is the Selig layout the catalog itself uses.
func WriteDat(w io.Writer, name string, contour model.Contour) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("write dat header: %w", err)
	}
	for _, p := range contour {
		if _, err := fmt.Fprintf(bw, "%10.6f %10.6f\n", p.X, p.Y); err != nil {
			return fmt.Errorf("write dat point: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush dat: %w", err)
	}
	return nil
}
