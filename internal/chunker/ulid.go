package chunker

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Chunk IDs are ULIDs: 26-character Crockford Base32 strings with a
// millisecond timestamp prefix. Collision-free within a run without
// requiring external dependencies.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	ulidMu  sync.Mutex
	ulidTS  uint64
	ulidSeq uint16
)

func newChunkID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == ulidTS {
		ulidSeq++
	} else {
		ulidTS = ts
		ulidSeq = 0
	}

	var b [16]byte
	// Timestamp in the first 6 bytes (big-endian 48-bit).
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	// Random in the remaining 10 bytes, with the sequence embedded in
	// bytes 6-7 so IDs stay unique within the same millisecond.
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], ulidSeq)

	return encodeCrockford(b)
}

// encodeCrockford renders 128 bits as 26 Base32 characters, most
// significant bits first.
func encodeCrockford(b [16]byte) string {
	var out [26]byte
	var acc uint32
	bits := 0
	pos := 25
	for i := 15; i >= 0; i-- {
		acc |= uint32(b[i]) << bits
		bits += 8
		for bits >= 5 && pos > 0 {
			out[pos] = crockford[acc&31]
			acc >>= 5
			bits -= 5
			pos--
		}
	}
	out[0] = crockford[acc&31]
	return string(out[:])
}
