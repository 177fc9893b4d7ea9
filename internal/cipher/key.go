package cipher

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// Alphabet is the ordered set of letters the engine substitutes.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Size is the number of letters in Alphabet.
const Size = len(Alphabet)

var ErrInvalidKey = errors.New("invalid substitution key")

// Key maps ciphertext letter 'A'+i to plaintext letter k[i]. A valid key is
// a permutation of Alphabet.
type Key [Size]byte

// Identity returns the key that maps every letter to itself.
func Identity() Key {
	var k Key
	for i := 0; i < Size; i++ {
		k[i] = Alphabet[i]
	}
	return k
}

// RandomKey returns a uniformly random permutation of Alphabet.
func RandomKey(rng *rand.Rand) Key {
	k := Identity()
	rng.Shuffle(Size, func(i, j int) {
		k[i], k[j] = k[j], k[i]
	})
	return k
}

// Swap exchanges the images of letters at positions a and b. Applying the
// same swap twice restores the key.
func (k *Key) Swap(a, b int) {
	k[a], k[b] = k[b], k[a]
}

// Mutate returns a copy of k with the images of two distinct, uniformly
// chosen letters exchanged.
func Mutate(rng *rand.Rand, k Key) Key {
	a, b := RandomPair(rng)
	k.Swap(a, b)
	return k
}

// RandomPair picks two distinct alphabet positions uniformly at random.
func RandomPair(rng *rand.Rand) (int, int) {
	a := rng.Intn(Size)
	b := rng.Intn(Size - 1)
	if b >= a {
		b++
	}
	return a, b
}

// Valid reports whether k is a permutation of Alphabet.
func (k Key) Valid() bool {
	var seen [Size]bool
	for _, c := range k {
		if c < 'A' || c > 'Z' || seen[c-'A'] {
			return false
		}
		seen[c-'A'] = true
	}
	return true
}

// Inverse returns the key that undoes k. k must be valid.
func (k Key) Inverse() Key {
	var inv Key
	for i, c := range k {
		inv[c-'A'] = Alphabet[i]
	}
	return inv
}

// Image returns the plaintext letter for ciphertext letter c, or c itself
// when c is outside Alphabet.
func (k Key) Image(c byte) byte {
	if c < 'A' || c > 'Z' {
		return c
	}
	return k[c-'A']
}

// String returns the 26 images in alphabet order.
func (k Key) String() string {
	return string(k[:])
}

// Pairs renders the key as "A=X B=Y ..." mappings.
func (k Key) Pairs() string {
	var b strings.Builder
	for i, c := range k {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(Alphabet[i])
		b.WriteByte('=')
		b.WriteByte(c)
	}
	return b.String()
}

var rxKeyPair = regexp.MustCompile(`\s*([A-Z]+=[A-Z]+)(?:[ ,]|$)`)

// ParseKey accepts either the 26 images in alphabet order ("QWERTY...") or
// a list of cipher=plain mappings ("A=Q B=W" or "ABC=QWE") covering every
// letter.
func ParseKey(s string) (Key, error) {
	line := bytes.ToUpper(bytes.TrimSpace([]byte(s)))

	var k Key
	if len(line) == Size && !bytes.ContainsAny(line, "=, ") {
		copy(k[:], line)
		if !k.Valid() {
			return Key{}, fmt.Errorf("%w: %q is not a permutation of the alphabet", ErrInvalidKey, s)
		}
		return k, nil
	}

	mappings := rxKeyPair.FindAllSubmatch(line, -1)
	if len(mappings) == 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	for _, m := range mappings {
		kv := bytes.SplitN(m[1], []byte("="), 2)
		if len(kv) != 2 || len(kv[0]) != len(kv[1]) {
			return Key{}, fmt.Errorf("%w: mapping %s", ErrInvalidKey, m[1])
		}
		// kv[0] holds ciphertext letters, kv[1] their plaintext images.
		for i, cc := range kv[0] {
			if k[cc-'A'] != 0 && k[cc-'A'] != kv[1][i] {
				return Key{}, fmt.Errorf("%w: letter %c mapped twice", ErrInvalidKey, cc)
			}
			k[cc-'A'] = kv[1][i]
		}
	}
	if !k.Valid() {
		return Key{}, fmt.Errorf("%w: mappings must cover every letter exactly once", ErrInvalidKey)
	}
	return k, nil
}
