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
	"strconv"
	"time"

	strftime "github.com/ncruces/go-strftime"
)

// renderTimeFormat renders t in UTC through a strftime-style spec (§4.3),
// delegating the actual rendering to go-strftime. Directive support is
// validated independently (see directiveField) since this codec only ever
// promises to support a fixed numeric subset of strftime.
func renderTimeFormat(spec string, t time.Time) (string, error) {
	if err := validateDirectives(spec); err != nil {
		return "", err
	}
	return strftime.Format(spec, t.UTC()), nil
}

// validateDirectives rejects any directive outside the supported numeric
// set plus literal '%%', used both at Template construction (§4.2) and
// ahead of every render call.
func validateDirectives(spec string) error {
	for i := 0; i < len(spec); i++ {
		if spec[i] != '%' {
			continue
		}
		if i+1 >= len(spec) {
			return fmt.Errorf("%w: dangling %% in %q", ErrInvalidStrftime, spec)
		}
		d := spec[i+1]
		i++
		if d == '%' {
			continue
		}
		if directiveField(d) == fieldFixedOrUnsupported {
			return fmt.Errorf("%w: unsupported directive %%%c in %q", ErrInvalidStrftime, d, spec)
		}
	}
	return nil
}

// timeField classifies one strftime numeric directive for the decoder's
// implicit-defaults rule (§4.4). Only the directives this codec promises to
// support appear here; anything else is "fixed/unsupported".
type timeField int

const (
	fieldNone timeField = iota
	fieldYear
	fieldMonth
	fieldDay
	fieldHour
	fieldMinute
	fieldSecond
	fieldSubsecond
	fieldFixedOrUnsupported
)

// directiveField classifies a single '%X' directive (the byte after '%').
func directiveField(directive byte) timeField {
	switch directive {
	case 'Y':
		return fieldYear
	case 'm':
		return fieldMonth
	case 'd':
		return fieldDay
	case 'H':
		return fieldHour
	case 'M':
		return fieldMinute
	case 'S':
		return fieldSecond
	case 'f':
		return fieldSubsecond
	default:
		return fieldFixedOrUnsupported
	}
}

// specDirectives walks spec and returns the ordered set of fields it binds,
// classified per directiveField. Used by the "choose narrowest step" rule
// in §4.4.
func specDirectives(spec string) []timeField {
	var fields []timeField
	for i := 0; i < len(spec); i++ {
		if spec[i] != '%' || i+1 >= len(spec) {
			continue
		}
		d := spec[i+1]
		i++
		if d == '%' {
			continue
		}
		fields = append(fields, directiveField(d))
	}
	return fields
}

// parsedTime holds the subset of fields the decoder can reconstruct from a
// numeric strftime spec, mirroring chrono::format::Parsed's relevant fields.
type parsedTime struct {
	year, month, day, hour, minute, second int
	hasYear, hasMonth, hasDay              bool
	hasHour, hasMinute, hasSecond          bool
	hasSubsecond                           bool
}

// parseTimeFormat parses substring against spec, extracting only the
// numeric Year/Month/Day/Hour/Minute/Second directives this codec supports.
// Returns ok=false if the spec contains any fixed/unsupported dynamic
// directive, or if substring doesn't match spec's literal structure.
func parseTimeFormat(spec, substring string) (parsedTime, bool) {
	var p parsedTime
	si := 0 // index into substring
	for i := 0; i < len(spec); i++ {
		if spec[i] != '%' {
			if si >= len(substring) || substring[si] != spec[i] {
				return parsedTime{}, false
			}
			si++
			continue
		}
		if i+1 >= len(spec) {
			return parsedTime{}, false
		}
		d := spec[i+1]
		i++
		if d == '%' {
			if si >= len(substring) || substring[si] != '%' {
				return parsedTime{}, false
			}
			si++
			continue
		}
		field := directiveField(d)
		if field == fieldFixedOrUnsupported {
			return parsedTime{}, false
		}

		width := 2
		if field == fieldYear {
			width = 4
		}
		if si+width > len(substring) {
			return parsedTime{}, false
		}
		numStr := substring[si : si+width]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return parsedTime{}, false
		}
		si += width

		switch field {
		case fieldYear:
			p.year, p.hasYear = n, true
		case fieldMonth:
			p.month, p.hasMonth = n, true
		case fieldDay:
			p.day, p.hasDay = n, true
		case fieldHour:
			p.hour, p.hasHour = n, true
		case fieldMinute:
			p.minute, p.hasMinute = n, true
		case fieldSecond:
			p.second, p.hasSecond = n, true
		case fieldSubsecond:
			// Sub-second value itself never feeds Begin/End (decodeTimeFormat
			// builds Begin from year through minute only); only its presence
			// matters for the contiguity check in applyImplicitDefaults.
			p.hasSubsecond = true
		}
	}
	if si != len(substring) {
		return parsedTime{}, false
	}
	return p, true
}

// applyImplicitDefaults fills in coarser-to-finer defaults per §4.4's
// contiguity rule. Returns ok=false if a finer field is present without its
// next-coarser neighbor (an ambiguous partial timestamp).
func applyImplicitDefaults(p parsedTime) (year, month, day, hour, minute, second int, ok bool) {
	if !p.hasYear {
		return 0, 0, 0, 0, 0, 0, false
	}
	year = p.year

	if !p.hasMonth {
		if p.hasDay {
			return 0, 0, 0, 0, 0, 0, false
		}
		month = 1
	} else {
		month = p.month
	}

	if !p.hasDay {
		if p.hasHour {
			return 0, 0, 0, 0, 0, 0, false
		}
		day = 1
	} else {
		day = p.day
	}

	if !p.hasHour {
		if p.hasMinute {
			return 0, 0, 0, 0, 0, 0, false
		}
		hour = 0
	} else {
		hour = p.hour
	}

	if !p.hasMinute {
		if p.hasSecond || p.hasSubsecond {
			return 0, 0, 0, 0, 0, 0, false
		}
		minute = 0
	} else {
		minute = p.minute
	}

	if !p.hasSecond && p.hasSubsecond {
		return 0, 0, 0, 0, 0, 0, false
	}

	second = p.second
	return year, month, day, hour, minute, second, true
}

// narrowestStep computes the §4.4 "end" step: the minimum of +12 months
// (year present), +1 month (month present), +1 day (day present) among the
// numeric fields actually bound by spec. Returns ok=false if spec binds no
// supported numeric field at all (literal-only spec).
func narrowestStep(fields []timeField) (months int, days int, ok bool) {
	hasYear, hasMonth, hasDay := false, false, false
	for _, f := range fields {
		switch f {
		case fieldYear:
			hasYear = true
		case fieldMonth:
			hasMonth = true
		case fieldDay:
			hasDay = true
		}
	}
	switch {
	case hasDay:
		return 0, 1, true
	case hasMonth:
		return 1, 0, true
	case hasYear:
		return 12, 0, true
	default:
		return 0, 0, false
	}
}

// addStep advances t by the given months/days, used to compute the
// exclusive "end" of a Datetime range (§4.4).
func addStep(t time.Time, months, days int) time.Time {
	return t.AddDate(0, months, days)
}
