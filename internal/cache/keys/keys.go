// Package keys builds the Redis keys used for airfoil documents and resampled
// profiles.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	prefix = "airfoil"

	// NumericBucket holds every code that does not start with a letter.
	NumericBucket = "numeric"
)

// Buckets lists the 27 catalog buckets: a..z, then NumericBucket.
func Buckets() []string {
	out := make([]string, 0, 27)
	for r := 'a'; r <= 'z'; r++ {
		out = append(out, string(r))
	}
	return append(out, NumericBucket)
}

// Bucket groups a code by its lowercase first letter.
func Bucket(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return NumericBucket
	}
	r := unicode.ToLower(rune(code[0]))
	if r >= 'a' && r <= 'z' {
		return string(r)
	}
	return NumericBucket
}

func Document(code string) string {
	c := sanitizeCode(code)
	return fmt.Sprintf("%s:doc:%s:%s", prefix, Bucket(c), c)
}

func BucketSet(bucket string) string {
	return fmt.Sprintf("%s:bucket:%s", prefix, bucket)
}

// ResampleIndex holds the resampled keys cached for one code so they can be
// dropped together.
func ResampleIndex(code string) string {
	return fmt.Sprintf("%s:rsidx:%s", prefix, sanitizeCode(code))
}

// Resampled keys one interpolated profile. The parameters are normalized
// before hashing so "Chord", " chord" and "chord" share an entry.
func Resampled(code string, n int, scheme string, ratio float64) string {
	s := strings.ToLower(strings.TrimSpace(scheme))
	norm := strconv.Itoa(n) + "|" + s + "|" + strconv.FormatFloat(ratio, 'g', -1, 64)
	sum := xxhash.Sum64String(norm)
	return fmt.Sprintf("%s:rs:%s:n=%d:s=%s:h=%016x", prefix, sanitizeCode(code), n, sanitizeCode(s), sum)
}

// sanitizeCode keeps letters, digits, '_' and '-' and maps anything else to a
// single '-'. Case is preserved since catalog file names are case sensitive.
func sanitizeCode(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := r
		if !isAlphaNum(r) && r != '_' && r != '-' {
			out = '-'
		}
		if out == '-' && prev == '-' {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
