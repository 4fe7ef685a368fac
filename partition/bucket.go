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
	"github.com/spaolacci/murmur3"
)

// signBitMask clears the sign bit of a 32-bit hash, matching the Iceberg
// bucket transform's treatment of Murmur3 output as unsigned.
const signBitMask = 0x7FFFFFFF

// Bucket computes the Iceberg-compatible bucket assignment for value under
// numBuckets buckets. numBuckets must be > 0; callers are expected to have
// validated this through Template construction (see ErrInvalidNumberOfBuckets).
// Panics if numBuckets == 0, matching the source's panic-on-zero-modulus
// behavior rather than silently returning 0.
func Bucket(value string, numBuckets uint32) uint32 {
	if numBuckets == 0 {
		panic("partition: Bucket called with numBuckets == 0")
	}
	return iceberg32Hash(value) % numBuckets
}

// iceberg32Hash computes the 32-bit Murmur3 hash (seed 0) of value's UTF-8
// bytes and clears the sign bit, matching Iceberg's bucket-transform hash.
func iceberg32Hash(value string) uint32 {
	h := murmur3.Sum32WithSeed([]byte(value), 0)
	return h & signBitMask
}
