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
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ColumnValueKind discriminates the four ColumnValue variants (§3).
type ColumnValueKind int

const (
	ColumnIdentity ColumnValueKind = iota
	ColumnPrefix
	ColumnDatetime
	ColumnBucket
)

// ColumnValue is the decoder's tagged-union output. Equality semantics per
// §3: Identity compares equal to the exact original string; Prefix and
// Bucket always compare unequal to any string (use IsPrefixMatchOf /
// BucketID instead).
type ColumnValue struct {
	Kind ColumnValueKind

	Identity string // ColumnIdentity
	Prefix   string // ColumnPrefix

	Begin time.Time // ColumnDatetime
	End   time.Time // ColumnDatetime, exclusive

	BucketID         uint32 // ColumnBucket
	BucketNumBuckets uint32 // ColumnBucket
}

// IsPrefixMatchOf reports whether a Prefix ColumnValue is a valid byte-wise
// prefix of candidate. Returns false for any other Kind.
func (c ColumnValue) IsPrefixMatchOf(candidate string) bool {
	if c.Kind != ColumnPrefix {
		return false
	}
	return strings.HasPrefix(candidate, c.Prefix)
}

// column is the (name, value) tuple the decoder yields.
type column struct {
	Name  string
	Value ColumnValue
}

// BuildColumnValues decodes key against t, yielding a lazy sequence of
// (column_name, ColumnValue) tuples (§4.4). Joining key on '|' is expected to
// produce exactly t.Len() substrings; if it produces fewer or more, the
// shorter side wins and no error is raised (§7's documented tolerance).
//
// Malformed percent-encoding, non-UTF-8 decode output, or an out-of-range
// bucket id panics: the key is assumed well-formed when produced, and
// corruption at that point is not recoverable (§7).
func BuildColumnValues(t Template, key string) iter.Seq2[string, ColumnValue] {
	return func(yield func(string, ColumnValue) bool) {
		substrings := strings.Split(key, string(partDelimiter))
		parts := t.parts
		n := len(substrings)
		if len(parts) < n {
			n = len(parts)
		}
		for i := 0; i < n; i++ {
			name, value, ok := decodePart(parts[i], substrings[i])
			if !ok {
				continue
			}
			if !yield(name, value) {
				return
			}
		}
	}
}

func decodePart(part TemplatePart, substring string) (string, ColumnValue, bool) {
	if substring == string(missingMark) {
		return "", ColumnValue{}, false
	}

	switch part.Kind {
	case PartTagValue:
		return decodeTagValue(part.Name, substring)
	case PartBucket:
		return decodeBucket(part.Name, part.NumBuckets, substring)
	case PartTimeFormat:
		return decodeTimeFormat(part.Spec, substring)
	default:
		panic("partition: unknown TemplatePart kind")
	}
}

func decodeTagValue(name, substring string) (string, ColumnValue, bool) {
	if substring == string(emptyMark) {
		return name, ColumnValue{Kind: ColumnIdentity, Identity: ""}, true
	}

	isPrefix := false
	raw := substring
	if strings.HasSuffix(raw, string(truncateMark)) {
		isPrefix = true
		raw = raw[:len(raw)-1]
	}

	decoded, err := percentDecode(raw)
	if err != nil {
		panic(fmt.Sprintf("partition: malformed percent-encoding in stored key for column %q: %s", name, err))
	}

	if isPrefix {
		return name, ColumnValue{Kind: ColumnPrefix, Prefix: decoded}, true
	}
	return name, ColumnValue{Kind: ColumnIdentity, Identity: decoded}, true
}

// percentDecode mirrors url.QueryUnescape's %XX handling but operates over
// the reserved-byte alphabet this codec defines (§4.3) rather than
// form-encoding's '+'-as-space rule, and requires the decoded bytes form
// valid UTF-8 (§4.4, fatal on violation).
func percentDecode(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(decoded) {
		return "", fmt.Errorf("decoded value is not valid UTF-8")
	}
	return decoded, nil
}

func decodeBucket(name string, numBuckets uint32, substring string) (string, ColumnValue, bool) {
	id, err := strconv.ParseUint(substring, 10, 32)
	if err != nil {
		panic(fmt.Sprintf("partition: malformed bucket id for column %q: %s", name, err))
	}
	if uint32(id) >= numBuckets {
		panic(fmt.Sprintf("partition: bucket id %d out of range [0,%d) for column %q", id, numBuckets, name))
	}
	return name, ColumnValue{Kind: ColumnBucket, BucketID: uint32(id), BucketNumBuckets: numBuckets}, true
}

func decodeTimeFormat(spec, substring string) (string, ColumnValue, bool) {
	parsed, ok := parseTimeFormat(spec, substring)
	if !ok {
		return "", ColumnValue{}, false
	}

	year, month, day, hour, minute, _, ok := applyImplicitDefaults(parsed)
	if !ok {
		return "", ColumnValue{}, false
	}

	months, days, ok := narrowestStep(specDirectives(spec))
	if !ok {
		return "", ColumnValue{}, false
	}

	begin := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	end := addStep(begin, months, days)
	return TimeColumnName, ColumnValue{Kind: ColumnDatetime, Begin: begin, End: end}, true
}
