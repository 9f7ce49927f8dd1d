package util

import (
	"hash"
	"hash/fnv"
)

// NewHash32 returns the 32-bit hash used for role group configuration hashing.
func NewHash32() hash.Hash32 {
	return fnv.New32()
}
