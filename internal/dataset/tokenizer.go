package dataset

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// PadID is the token id used for padding. Real tokens never hash to it.
const PadID = 0

// Encoder turns raw text into fixed-length token ids with a hashing
// vocabulary, so no vocabulary file is needed.
type Encoder struct {
	VocabSize int
	MaxLen    int
}

func NewEncoder(vocabSize, maxLen int) Encoder {
	return Encoder{VocabSize: vocabSize, MaxLen: maxLen}
}

// Encode lowercases and splits text on anything that is not a letter or
// digit, then maps each token into [1, VocabSize).
func (e Encoder) Encode(text string) (ids, mask []int) {
	for _, tok := range Tokenize(text) {
		ids = append(ids, e.tokenID(tok))
	}
	mask = make([]int, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return e.Fit(ids, mask)
}

// Fit truncates or pads ids and mask to MaxLen. MaxLen <= 0 leaves them as is.
func (e Encoder) Fit(ids, mask []int) ([]int, []int) {
	if e.MaxLen <= 0 {
		return ids, mask
	}
	outIDs := make([]int, e.MaxLen)
	outMask := make([]int, e.MaxLen)
	n := copy(outIDs, ids)
	copy(outMask[:n], mask)
	for i := n; i < e.MaxLen; i++ {
		outIDs[i] = PadID
	}
	return outIDs, outMask
}

func (e Encoder) tokenID(tok string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tok))
	if e.VocabSize <= 1 {
		return 1
	}
	return 1 + int(h.Sum32()%uint32(e.VocabSize-1))
}

// Tokenize splits lowercase text into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
