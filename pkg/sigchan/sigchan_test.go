package sigchan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChan_Coalesces(t *testing.T) {
	c := New(0)
	assert.True(t, c.Emit())
	assert.False(t, c.Emit())

	<-c.C()
	assert.True(t, c.Emit())
}
