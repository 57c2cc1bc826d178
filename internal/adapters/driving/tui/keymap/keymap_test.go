package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()

	assert.ElementsMatch(t, []string{"q", "ctrl+c", "esc"}, km.Cancel.Keys())
	assert.Equal(t, []string{"d"}, km.Details.Keys())
	assert.Equal(t, "cancel", km.Cancel.Help().Desc)
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ShortHelp()

	assert.Len(t, help, 2)
	assert.Equal(t, "details", help[0].Help().Desc)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		key  string
		want bool
	}{
		{"q", true},
		{"ctrl+c", true},
		{"esc", true},
		{"x", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.key, km.Cancel))
		})
	}
}
