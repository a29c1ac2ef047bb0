package telnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadBuffer(t *testing.T) {
	b := newPayloadBuffer(2)
	assert.Equal(t, 2, b.capacity())
	assert.Equal(t, byte(0), b.option())
	assert.Nil(t, b.payload())

	assert.True(t, b.push(Echo))
	assert.Nil(t, b.payload())
	assert.True(t, b.push('a'))
	assert.True(t, b.push('b'))
	assert.False(t, b.push('c'))
	assert.False(t, b.push('d'))

	assert.Equal(t, byte(Echo), b.option())
	assert.Equal(t, []byte("ab"), b.payload())
	assert.Equal(t, 3, b.size())
	assert.Equal(t, 2, b.dropped)

	b.reset()
	assert.Equal(t, 0, b.size())
	assert.Equal(t, 0, b.dropped)
	assert.Equal(t, 2, b.capacity())
}
