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
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncoderOnce sync.Once
	zstdEncoder     *zstd.Encoder
	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
)

func getZstdEncoder() *zstd.Encoder {
	zstdEncoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			panic("partition: failed to initialize zstd encoder: " + err.Error())
		}
		zstdEncoder = enc
	})
	return zstdEncoder
}

func getZstdDecoder() *zstd.Decoder {
	zstdDecoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic("partition: failed to initialize zstd decoder: " + err.Error())
		}
		zstdDecoder = dec
	})
	return zstdDecoder
}

// EncodeTemplateCompressed marshals t to its canonical wire-form JSON (§6)
// and compresses it with zstd, for callers whose storage layer benefits
// from compacting the blob before it is written (mirrors the teacher's own
// use of zstd to shrink serialized blobs ahead of a KV store write).
func EncodeTemplateCompressed(t Template) ([]byte, error) {
	b, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return getZstdEncoder().EncodeAll(b, nil), nil
}

// DecodeTemplateCompressed reverses EncodeTemplateCompressed.
func DecodeTemplateCompressed(data []byte) (Template, error) {
	b, err := getZstdDecoder().DecodeAll(data, nil)
	if err != nil {
		return Template{}, fmt.Errorf("zstd decompress: %w", err)
	}
	var t Template
	if err := t.UnmarshalJSON(b); err != nil {
		return Template{}, err
	}
	return t, nil
}
