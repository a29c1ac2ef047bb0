package telnet

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

var splitCorpus = [][]byte{
	[]byte("no commands at all"),
	{'a', IAC, IAC, 'b', IAC, IAC},
	{IAC, WILL, Echo, IAC, DO, SuppressGoAhead, 'x', IAC, WONT, Linemode},
	{IAC, NOP, IAC, GA, 'z', IAC, 200, IAC, EOR},
	{'s', IAC, SB, NAWS, 0, 80, 0, 24, IAC, SE, 't'},
	{IAC, SB, TerminalType, 0, 'x', IAC, IAC, 'y', IAC, SE},
	{IAC, SB, NewEnviron, IAC, 'q', IAC, SE, IAC, SE, 'r'},
	{IAC, SB, IAC, SE, IAC, IAC, IAC, SB, Charset, 1, ';', 'U', 'T', 'F', '-', '8', IAC, SE},
	append(append([]byte{IAC, SB, TerminalType}, make([]byte, 200)...), IAC, SE, 'e', 'n', 'd'),
}

func decodeSplit(t *testing.T, input []byte, cuts []int) []Item {
	t.Helper()
	d := NewDecoder(16)
	var chunks [][]byte
	prev := 0
	for _, cut := range cuts {
		chunks = append(chunks, input[prev:cut])
		prev = cut
	}
	chunks = append(chunks, input[prev:])
	return decodeChunks(t, d, chunks...)
}

func TestSplitAtEveryPoint(t *testing.T) {
	for _, input := range splitCorpus {
		expected := decodeSplit(t, input, nil)
		for i := 0; i <= len(input); i++ {
			require.Equal(t, expected, decodeSplit(t, input, []int{i}), "input %q split at %d", input, i)
		}
	}
}

func TestSplitEveryByte(t *testing.T) {
	for _, input := range splitCorpus {
		expected := decodeSplit(t, input, nil)
		cuts := make([]int, 0, len(input))
		for i := 1; i < len(input); i++ {
			cuts = append(cuts, i)
		}
		require.Equal(t, expected, decodeSplit(t, input, cuts), "input %q", input)
	}
}

func TestSplitRandom(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for _, input := range splitCorpus {
		expected := decodeSplit(t, input, nil)
		for range 100 {
			var cuts []int
			for i := 1; i < len(input); i++ {
				if r.IntN(4) == 0 {
					cuts = append(cuts, i)
				}
			}
			require.Equal(t, expected, decodeSplit(t, input, cuts), "input %q cuts %v", input, cuts)
		}
	}
}

func TestRandomInputNeverPoisons(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for range 200 {
		input := make([]byte, r.IntN(64))
		for i := range input {
			// bias towards command bytes
			if r.IntN(3) == 0 {
				input[i] = byte(EOF + r.IntN(20))
			} else {
				input[i] = byte(r.IntN(256))
			}
		}
		d := NewDecoder(8)
		_, err := d.AppendItems(nil, input)
		require.NoError(t, err)
		require.NotEqual(t, StatePoisoned, d.State())
	}
}
