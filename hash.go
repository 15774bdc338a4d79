package hashring

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Hasher maps bytes to a position on the ring.
// Implementations must be deterministic across processes, otherwise two rings built
// from the same membership on different machines disagree about placement.
type Hasher interface {
	Sum64(data []byte) uint64
}

// XXHasher hashes with xxHash64 (seed 0). It is the default.
type XXHasher struct{}

func (XXHasher) Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Murmur3Hasher hashes with the x64 variant of MurmurHash3 and keeps the first
// 64 bits of the 128-bit sum.
type Murmur3Hasher struct{}

func (Murmur3Hasher) Sum64(data []byte) uint64 {
	var h1, _ = murmur3.Sum128(data)
	return h1
}

// ParseHasher resolves the hasher names accepted by configuration files and flags:
// "xxhash" (also the empty string) and "murmur3".
func ParseHasher(name string) (Hasher, error) {
	switch name {
	case "", "xxhash":
		return XXHasher{}, nil
	case "murmur3":
		return Murmur3Hasher{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHasher, name)
}

// vnodeKey builds the hash input for a node's virtual position, "<id>:<index>".
func vnodeKey(id string, index int) []byte {
	var buf = make([]byte, 0, len(id)+1+4)
	buf = append(buf, id...)
	buf = append(buf, ':')
	return strconv.AppendInt(buf, int64(index), 10)
}

// hashVNode returns the ring position of virtual node index of the node identified by id.
func hashVNode(h Hasher, id string, index int) uint64 {
	return h.Sum64(vnodeKey(id, index))
}
