package cipher

import "sort"

// Decrypt substitutes every letter 'A'..'Z' in ciphertext with its image
// under key. Lowercase letters and all other bytes pass through unchanged,
// so the result always has the same length as the input.
func Decrypt(ciphertext string, key Key) string {
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i++ {
		out[i] = key.Image(ciphertext[i])
	}
	return string(out)
}

// Encrypt is the inverse of Decrypt for a valid key.
func Encrypt(plaintext string, key Key) string {
	return Decrypt(plaintext, key.Inverse())
}

type LetterCount struct {
	Letter byte
	Count  int
}

// Frequencies counts the uppercase letters of text, most frequent first.
// Letters that never occur are omitted.
func Frequencies(text string) []LetterCount {
	var counts [Size]int
	for i := 0; i < len(text); i++ {
		if c := text[i]; c >= 'A' && c <= 'Z' {
			counts[c-'A']++
		}
	}

	out := make([]LetterCount, 0, Size)
	for i, n := range counts {
		if n > 0 {
			out = append(out, LetterCount{Letter: Alphabet[i], Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Letter < out[j].Letter
		}
		return out[i].Count > out[j].Count
	})
	return out
}
