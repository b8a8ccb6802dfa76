package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct{ name string }

func TestArrayObject_KeepsOrder(t *testing.T) {
	a := NewArrayObject()
	a.Set("b", 1)
	a.Set("a", 2)
	a.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, a.Keys())
	v, ok := a.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	a.Delete("b")
	assert.Equal(t, []string{"a"}, a.Keys())
	assert.Equal(t, map[string]any{"a": 2}, a.ToMap())
	assert.Equal(t, 1, a.Len())
}

func TestObjectStorage_Identity(t *testing.T) {
	s := NewObjectStorage()
	x, y := &item{"x"}, &item{"x"}

	assert.True(t, s.Attach(x))
	assert.False(t, s.Attach(x))
	assert.True(t, s.Attach(y))
	assert.False(t, s.Attach("scalar"))
	assert.Equal(t, 2, s.Len())

	s.Detach(x)
	assert.False(t, s.Contains(x))
	assert.True(t, s.Contains(y))
	assert.Equal(t, []any{y}, s.Objects())
}

func TestArrayCollection(t *testing.T) {
	c := NewArrayCollection(1)
	c.Add(2)
	assert.Equal(t, []any{1, 2}, c.Elements())
	assert.Equal(t, 2, c.Len())

	var zero ArrayCollection
	zero.Add("x")
	assert.Equal(t, 1, zero.Len())
}
