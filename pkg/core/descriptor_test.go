package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-loom/loom/pkg/host"
	"github.com/go-loom/loom/pkg/mixin"
)

func TestBuilders(t *testing.T) {
	comp := &Component{Name: "List"}
	d := Elem("row", Props{"gap": 8},
		Text("label"),
		Frag(Text("a"), Text("b")),
		Of(comp, Props{"n": 1}, Text("slot")),
	)

	require.Equal(t, KindElement, d.Kind)
	assert.Equal(t, "row", d.Tag)
	assert.Equal(t, 8, d.Props["gap"])
	require.Len(t, d.Children, 3)

	assert.Equal(t, KindText, d.Children[0].Kind)
	assert.Equal(t, "label", d.Children[0].Text)

	assert.Equal(t, KindFragment, d.Children[1].Kind)
	assert.Len(t, d.Children[1].Children, 2)

	assert.Equal(t, KindComponent, d.Children[2].Kind)
	assert.Same(t, comp, d.Children[2].Component)
	assert.Len(t, d.Children[2].Children, 1)
}

func TestWithKeyReturnsCopy(t *testing.T) {
	base := Elem("item", nil)
	keyed := base.WithKey("a")

	assert.Nil(t, base.Key)
	assert.Equal(t, "a", keyed.Key)
}

func TestUseDoesNotShareMixinSlices(t *testing.T) {
	base := Elem("button", nil).Use(mixin.On("click", func(host.Event) {}))
	first := base.Use(mixin.On("focus", func(host.Event) {}))
	second := base.Use(mixin.On("blur", func(host.Event) {}))

	require.Len(t, base.Mixins, 1)
	require.Len(t, first.Mixins, 2)
	require.Len(t, second.Mixins, 2)
	assert.Equal(t, "on:focus", first.Mixins[1].Factory.Name())
	assert.Equal(t, "on:blur", second.Mixins[1].Factory.Name())
}

func TestIsZero(t *testing.T) {
	assert.True(t, Descriptor{}.IsZero())
	assert.False(t, Text("").IsZero())
	assert.False(t, Frag().IsZero())
}

func TestCanPatch(t *testing.T) {
	compA := &Component{Name: "A"}
	compB := &Component{Name: "B"}

	cases := []struct {
		name string
		prev Descriptor
		next Descriptor
		want bool
	}{
		{"same tag", Elem("div", nil), Elem("div", Props{"x": 1}), true},
		{"different tag", Elem("div", nil), Elem("span", nil), false},
		{"element vs text", Elem("div", nil), Text("x"), false},
		{"same component", Of(compA, nil), Of(compA, Props{"n": 2}), true},
		{"different component", Of(compA, nil), Of(compB, nil), false},
		{"text", Text("a"), Text("b"), true},
		{"fragment", Frag(), Frag(Text("x")), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, canPatch(tc.prev, tc.next))
		})
	}
}

func TestUsableKey(t *testing.T) {
	assert.Nil(t, usableKey(nil))
	assert.Equal(t, "a", usableKey("a"))
	assert.Equal(t, 7, usableKey(7))

	// Non-comparable keys cannot index the sibling map; the child matches
	// positionally instead of panicking.
	assert.Nil(t, usableKey([]int{1, 2}))
	assert.Nil(t, usableKey(map[string]int{}))
}
