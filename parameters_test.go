package toolpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameters(t *testing.T) {
	ps := NewParameters()

	val, err := ps.Num(1)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, val)
	assert.NoError(t, ps.SetNum(1, 2.5))
	val, err = ps.Num(1)
	assert.NoError(t, err)
	assert.Equal(t, 2.5, val)

	for _, num := range []int{0, -1, maxNumParam + 1} {
		_, err = ps.Num(num)
		assert.Error(t, err, "Num(%d)", num)
		assert.Error(t, ps.SetNum(num, 1), "SetNum(%d)", num)
	}
	assert.NoError(t, ps.SetNum(maxNumParam, 1))

	_, err = ps.Name("width")
	assert.Error(t, err)
	ps.SetName("Width", 3)
	val, err = ps.Name("WIDTH")
	assert.NoError(t, err)
	assert.Equal(t, 3.0, val)
}
