// Package contenthash computes the deterministic content hashes used to
// address shell-state bases and diffs.
//
// A state's canonical byte encoding is hashed to a 64-bit value and rendered
// as a fixed-width base36 string, mirroring the short-ID encoding the rest of
// the system uses for readability in logs and SQL primary keys.
package contenthash

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"strings"
)

// base36Alphabet is the character set used to render a hash as text (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// width is the fixed string length of an encoded 64-bit hash. 36^13 exceeds
// 2^64, so 13 base36 digits always suffice without truncation.
const width = 13

// Sum64 derives a 64-bit content hash from data: the first 8 bytes of its
// SHA-256 digest, big-endian.
func Sum64(data []byte) uint64 {
	digest := sha256.Sum256(data)
	return binary.BigEndian.Uint64(digest[:8])
}

// Encode renders a 64-bit hash as a zero-padded base36 string.
func Encode(h uint64) string {
	num := new(big.Int).SetUint64(h)
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, width)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var out strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		out.WriteByte(chars[i])
	}

	str := out.String()
	if len(str) < width {
		str = strings.Repeat("0", width-len(str)) + str
	}
	return str
}

// Hash computes the canonical content-hash string for a blob: Encode(Sum64(data)).
func Hash(data []byte) string {
	return Encode(Sum64(data))
}
