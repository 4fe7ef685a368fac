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
	json "github.com/goccy/go-json"
)

// wireTemplate is the protocol-buffer-shaped persistence form of a Template
// (§6): a repeated "parts" field, each part carrying exactly one of
// tagValue/timeFormat/bucket. Field names are camelCase and must remain
// stable forever since catalog rows store this JSON literally.
type wireTemplate struct {
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	TagValue   *string     `json:"tagValue,omitempty"`
	TimeFormat *string     `json:"timeFormat,omitempty"`
	Bucket     *wireBucket `json:"bucket,omitempty"`
}

type wireBucket struct {
	TagName    string `json:"tagName"`
	NumBuckets uint32 `json:"numBuckets"`
}

// MarshalJSON encodes t as the canonical protobuf-shaped wire form (§6).
func (t Template) MarshalJSON() ([]byte, error) {
	w := wireTemplate{Parts: make([]wirePart, len(t.parts))}
	for i, p := range t.parts {
		w.Parts[i] = toWirePart(p)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the canonical wire form into t, bypassing New's
// validation (the wire form may represent a template persisted under a
// previous, now-relaxed, or now-stricter validation policy; the decoder's
// job is to tolerate whatever the catalog stored, per §7's permissive
// decode policy).
func (t *Template) UnmarshalJSON(data []byte) error {
	var w wireTemplate
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parts := make([]TemplatePart, len(w.Parts))
	for i, wp := range w.Parts {
		parts[i] = fromWirePart(wp)
	}
	t.parts = parts
	return nil
}

func toWirePart(p TemplatePart) wirePart {
	switch p.Kind {
	case PartTagValue:
		name := p.Name
		return wirePart{TagValue: &name}
	case PartTimeFormat:
		spec := p.Spec
		return wirePart{TimeFormat: &spec}
	case PartBucket:
		return wirePart{Bucket: &wireBucket{TagName: p.Name, NumBuckets: p.NumBuckets}}
	default:
		panic("partition: unknown TemplatePart kind")
	}
}

func fromWirePart(wp wirePart) TemplatePart {
	switch {
	case wp.TagValue != nil:
		return TagValue(*wp.TagValue)
	case wp.TimeFormat != nil:
		return TimeFormat(*wp.TimeFormat)
	case wp.Bucket != nil:
		return BucketPart(wp.Bucket.TagName, wp.Bucket.NumBuckets)
	default:
		// An empty wire part decodes to a zero-value TagValue("") part; this
		// is stored data the decoder must tolerate, not an error (§7).
		return TagValue("")
	}
}

// EncodedSize reports the byte length of t's canonical wire-form JSON, the
// figure the catalog's memory accounting tracks per stored template.
func (t Template) EncodedSize() (int, error) {
	b, err := t.MarshalJSON()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
