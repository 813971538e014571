package probe

import (
	"bytes"
	"fmt"
	"math/rand"
)

// Payload is a named probe input.
type Payload struct {
	Name string
	Data []byte
}

var words = []string{
	"stream", "buffer", "window", "flush", "block", "frame", "header",
	"checksum", "dictionary", "literal", "match", "offset", "length",
}

// Payloads builds the probe inputs: one empty payload plus repeated, zeroed,
// random and text payloads of every size. The same seed always produces the
// same payloads.
func Payloads(sizes []int, seed int64) []Payload {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible test data

	out := []Payload{{Name: "empty"}}

	for _, size := range sizes {
		random := make([]byte, size)
		_, _ = rng.Read(random)

		out = append(out,
			Payload{Name: fmt.Sprintf("repeated-%d", size), Data: repeated([]byte("abc"), size)},
			Payload{Name: fmt.Sprintf("zeros-%d", size), Data: make([]byte, size)},
			Payload{Name: fmt.Sprintf("random-%d", size), Data: random},
			Payload{Name: fmt.Sprintf("text-%d", size), Data: text(rng, size)},
		)
	}

	return out
}

func repeated(unit []byte, size int) []byte {
	return bytes.Repeat(unit, size/len(unit)+1)[:size]
}

func text(rng *rand.Rand, size int) []byte {
	var buf bytes.Buffer

	buf.Grow(size + 16)

	for buf.Len() < size {
		buf.WriteString(words[rng.Intn(len(words))])
		buf.WriteByte(' ')
	}

	return buf.Bytes()[:size]
}
