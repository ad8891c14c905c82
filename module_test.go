package koi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModulesReturnsAttachedModules(t *testing.T) {
	r := require.New(t)
	d := New()

	a := NewModule("a")
	a.AddCommand(leafCommand("one"))
	b := NewModule("b")
	b.AddCommand(leafCommand("two"))
	r.NoError(d.AttachModule(a))
	r.NoError(d.AttachModule(b, "guild-1"))

	mods := d.Modules()
	r.Len(mods, 2)
	r.Same(a, mods[0])
	r.Same(b, mods[1])

	mods[0] = nil
	r.Same(a, d.Modules()[0], "the returned slice is a copy")
}
