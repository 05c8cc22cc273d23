package stringutil

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// base58Alphabet is the Bitcoin base58 alphabet: it excludes characters that
// are easily confused with each other (0, O, I, l).
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// base58Error reports an input byte that is not part of base58Alphabet.
type base58Error struct {
	char byte
}

func (e *base58Error) Error() string {
	return fmt.Sprintf("invalid base58 character: %c", e.char)
}

var base58Radix = big.NewInt(58)

// Base58Encode encodes data using the base58 alphabet, preserving leading
// zero bytes as leading '1' characters.
func Base58Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	x := new(big.Int).SetBytes(data)
	mod := new(big.Int)

	out := make([]byte, 0, len(data)*138/100+1)
	for x.Sign() > 0 {
		x.DivMod(x, base58Radix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		out = append(out, base58Alphabet[0])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Base58Decode reverses Base58Encode, returning an error that identifies the
// offending character if s contains one outside base58Alphabet.
func Base58Decode(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}

	var lookup [256]int
	for i := range lookup {
		lookup[i] = -1
	}
	for i := 0; i < len(base58Alphabet); i++ {
		lookup[base58Alphabet[i]] = i
	}

	zeros := 0
	for zeros < len(s) && s[zeros] == base58Alphabet[0] {
		zeros++
	}

	x := new(big.Int)
	for i := 0; i < len(s); i++ {
		c := s[i]
		v := lookup[c]
		if v < 0 {
			return nil, &base58Error{char: c}
		}
		x.Mul(x, base58Radix)
		x.Add(x, big.NewInt(int64(v)))
	}

	decoded := x.Bytes()
	out := make([]byte, zeros+len(decoded))
	copy(out[zeros:], decoded)
	return out, nil
}

// Base58EncodeSHA256 returns the base58 encoding of the SHA-256 digest of s.
// It is used to derive short, filesystem-safe identity hashes for stages and
// DAG runs.
func Base58EncodeSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return Base58Encode(sum[:])
}
