// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package partition

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Row is the minimal view a template needs to render a key: a timestamp and
// a tag-value lookup. KeyEncoder is the inverse of the decoder and is
// specified here for completeness of the round-trip contract (§2 item 3).
type Row struct {
	Timestamp time.Time
	Tags      map[string]string
}

// mustPercentEncode reports whether b is in the percent-encoded alphabet for
// tag values (§4.3, §6):
// the delimiter, the two sentinel markers, the truncation marker, and '%'
// itself, plus every ASCII control byte and every non-ASCII byte.
func mustPercentEncode(b byte) bool {
	switch b {
	case partDelimiter, missingMark, emptyMark, truncateMark, '%':
		return true
	}
	if b < 0x20 || b == 0x7f {
		return true
	}
	return b >= 0x80
}

// Encode renders row through t, producing the partition key string (§4.3).
func (t Template) Encode(row Row) string {
	parts := make([]string, len(t.parts))
	for i, part := range t.parts {
		parts[i] = encodePart(part, row)
	}
	return strings.Join(parts, string(partDelimiter))
}

func encodePart(part TemplatePart, row Row) string {
	switch part.Kind {
	case PartTagValue:
		v, ok := row.Tags[part.Name]
		if !ok {
			return string(missingMark)
		}
		if v == "" {
			return string(emptyMark)
		}
		return encodeAndTruncateTagValue(v)
	case PartTimeFormat:
		rendered, err := renderTimeFormat(part.Spec, row.Timestamp)
		if err != nil {
			// Construction validated the spec; a render-time failure here
			// indicates a corrupt Template (e.g. built via the test-only
			// unvalidated constructor).
			panic("partition: time format render failed for a validated template: " + err.Error())
		}
		return rendered
	case PartBucket:
		v, ok := row.Tags[part.Name]
		if !ok {
			return string(missingMark)
		}
		id := Bucket(v, part.NumBuckets)
		return strconv.FormatUint(uint64(id), 10)
	default:
		panic("partition: unknown TemplatePart kind")
	}
}

// encodeAndTruncateTagValue percent-encodes v and, if the result exceeds
// maxPartBytes, truncates at a boundary that never splits a percent triplet,
// a UTF-8 code point, or a grapheme cluster, appending the truncation marker
// (§4.3, §6).
func encodeAndTruncateTagValue(v string) string {
	encoded := percentEncode(v)
	if len(encoded) <= maxPartBytes {
		return encoded
	}
	return truncateSafely(encoded) + string(truncateMark)
}

func percentEncode(v string) string {
	needsEncoding := false
	for i := 0; i < len(v); i++ {
		if mustPercentEncode(v[i]) {
			needsEncoding = true
			break
		}
	}
	if !needsEncoding {
		return v
	}

	var b strings.Builder
	b.Grow(len(v))
	const hexDigits = "0123456789ABCDEF"
	for i := 0; i < len(v); i++ {
		c := v[i]
		if mustPercentEncode(c) {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xf])
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// truncateSafely returns the longest prefix of encoded, at most
// maxPartBytes-1 bytes (room left for the trailing truncation marker), that
// ends on a percent-triplet boundary, a UTF-8 boundary, and a grapheme
// cluster boundary.
func truncateSafely(encoded string) string {
	limit := maxPartBytes - 1
	if limit > len(encoded) {
		limit = len(encoded)
	}

	cut := limit
	for cut > 0 && isMidPercentTriplet(encoded, cut) {
		cut--
	}
	for cut > 0 && !utf8.RuneStart(encoded[cut]) {
		cut--
	}
	cut = graphemeFloor(encoded, cut)
	return encoded[:cut]
}

// isMidPercentTriplet reports whether byte offset cut falls inside a "%XX"
// triplet starting before cut.
func isMidPercentTriplet(encoded string, cut int) bool {
	for back := 1; back <= 2 && cut-back >= 0; back++ {
		if encoded[cut-back] == '%' {
			return true
		}
	}
	return false
}

// graphemeFloor returns the largest byte offset in encoded, at or before cut,
// that falls between two grapheme clusters of the decoded value. Clusters are
// found on the decoded text and measured by their encoded length, so the
// result is also a code point and percent-triplet boundary.
func graphemeFloor(encoded string, cut int) int {
	if cut >= len(encoded) {
		return cut
	}
	decoded, err := percentDecode(encoded)
	if err != nil {
		return 0
	}
	state := -1
	pos := 0
	lastBoundary := 0
	remaining := decoded
	for len(remaining) > 0 {
		var cluster string
		cluster, remaining, _, state = uniseg.FirstGraphemeClusterInString(remaining, state)
		next := pos + len(percentEncode(cluster))
		if next > cut {
			break
		}
		pos = next
		lastBoundary = pos
	}
	return lastBoundary
}
