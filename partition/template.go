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
	"errors"
	"fmt"
	"strings"
)

// TimeColumnName is the reserved tag-column name for the row timestamp.
// It cannot appear as a TagValue or Bucket name.
const TimeColumnName = "time"

// Partition-key size limits (§4.3, §6).
const (
	maxPartBytes  = 200
	maxParts      = 8
	maxKeyBytes   = maxParts*maxPartBytes + (maxParts - 1) // 1607
	truncateMark  = '#'
	emptyMark     = '^'
	missingMark   = '!'
	partDelimiter = '|'
)

// Sentinel validation errors (§7). Compare with errors.Is; messages carry
// the offending value via %w-wrapping so both the sentinel and a readable
// message survive.
var (
	ErrNoParts              = errors.New("partition: template has no parts")
	ErrTooManyParts         = errors.New("partition: template has too many parts")
	ErrInvalidStrftime      = errors.New("partition: invalid strftime format")
	ErrInvalidTagValue      = errors.New("partition: invalid tag value name")
	ErrRepeatedTagValue     = errors.New("partition: repeated tag/bucket name")
	ErrInvalidNumberOfBuckets = errors.New("partition: invalid number of buckets")
)

// PartKind discriminates the three TemplatePart variants.
type PartKind int

const (
	PartTagValue PartKind = iota
	PartTimeFormat
	PartBucket
)

// TemplatePart is exactly one of TagValue(name), TimeFormat(spec), or
// Bucket(name, count). Which fields are meaningful is determined by Kind.
type TemplatePart struct {
	Kind       PartKind
	Name       string // TagValue.name, Bucket.name
	Spec       string // TimeFormat.spec
	NumBuckets uint32 // Bucket.count
}

// TagValue constructs a TagValue part.
func TagValue(name string) TemplatePart { return TemplatePart{Kind: PartTagValue, Name: name} }

// TimeFormat constructs a TimeFormat part.
func TimeFormat(spec string) TemplatePart { return TemplatePart{Kind: PartTimeFormat, Spec: spec} }

// BucketPart constructs a Bucket part.
func BucketPart(name string, numBuckets uint32) TemplatePart {
	return TemplatePart{Kind: PartBucket, Name: name, NumBuckets: numBuckets}
}

// Template is a validated, immutable sequence of 1..=8 TemplateParts. The
// zero value is not a valid Template; construct via New or the package-level
// Default constant.
type Template struct {
	parts []TemplatePart
}

// New validates parts in the priority order mandated by §4.2 and returns an
// immutable Template, or the first validation error encountered.
func New(parts []TemplatePart) (Template, error) {
	if len(parts) == 0 {
		return Template{}, ErrNoParts
	}
	if len(parts) > maxParts {
		return Template{}, fmt.Errorf("%w: %d", ErrTooManyParts, len(parts))
	}

	for _, p := range parts {
		if p.Kind == PartTimeFormat {
			if err := validateStrftime(p.Spec); err != nil {
				return Template{}, err
			}
		}
	}

	for _, p := range parts {
		if p.Kind == PartTagValue || p.Kind == PartBucket {
			if p.Name == "" || strings.Contains(p.Name, TimeColumnName) {
				return Template{}, fmt.Errorf("%w: %q", ErrInvalidTagValue, p.Name)
			}
		}
	}

	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if p.Kind != PartTagValue && p.Kind != PartBucket {
			continue
		}
		if _, ok := seen[p.Name]; ok {
			return Template{}, fmt.Errorf("%w: %q", ErrRepeatedTagValue, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	for _, p := range parts {
		if p.Kind == PartBucket {
			if p.NumBuckets < 1 || p.NumBuckets >= 100_000 {
				return Template{}, fmt.Errorf("%w: %d", ErrInvalidNumberOfBuckets, p.NumBuckets)
			}
		}
	}

	cp := make([]TemplatePart, len(parts))
	copy(cp, parts)
	return Template{parts: cp}, nil
}

// NewUnvalidatedTemplateForTests builds a Template bypassing all validation
// in New. It exists solely so decoder behavior on malformed stored templates
// can be exercised in tests (§3, §9's "backdoor constructor"); it must never
// be called from production code.
func NewUnvalidatedTemplateForTests(parts []TemplatePart) Template {
	cp := make([]TemplatePart, len(parts))
	copy(cp, parts)
	return Template{parts: cp}
}

// Parts returns the template's parts. The returned slice must not be mutated.
func (t Template) Parts() []TemplatePart { return t.parts }

// Len reports the number of parts.
func (t Template) Len() int { return len(t.parts) }

// Default is the process-wide default template: a single
// TimeFormat("%Y-%m-%d"). It must never change once a deployment is live.
var Default = Template{parts: []TemplatePart{TimeFormat("%Y-%m-%d")}}

// validateStrftime rejects everything Encode's renderTimeFormat would later
// reject, so a successfully constructed Template can never panic when
// encoded (§4.2): an empty spec, or any directive outside the numeric
// subset validateDirectives accepts.
func validateStrftime(spec string) error {
	if spec == "" {
		return fmt.Errorf("%w: empty format", ErrInvalidStrftime)
	}
	return validateDirectives(spec)
}
