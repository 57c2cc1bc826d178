package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseTriples(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Triple
	}{
		{
			name: "extractor format",
			in:   "(X, based on, The Book), (The Book, author, Jane Doe)",
			want: []Triple{
				{Subject: "X", Predicate: "based on", Object: "The Book"},
				{Subject: "The Book", Predicate: "author", Object: "Jane Doe"},
			},
		},
		{
			name: "nested parentheses kept",
			in:   "(X (2006 film), directed by, Ann Lee)",
			want: []Triple{{Subject: "X (2006 film)", Predicate: "directed by", Object: "Ann Lee"}},
		},
		{
			name: "object keeps commas",
			in:   "(Paris, located in, Ile-de-France, France)",
			want: []Triple{{Subject: "Paris", Predicate: "located in", Object: "Ile-de-France, France"}},
		},
		{
			name: "trailing unclosed triple",
			in:   "(A, b, C), (D, e, F",
			want: []Triple{{Subject: "A", Predicate: "b", Object: "C"}, {Subject: "D", Predicate: "e", Object: "F"}},
		},
		{
			name: "duplicates and malformed dropped",
			in:   "(A, b, C)\n(A, b, C)\n(only two, parts)\n(, x, y)",
			want: []Triple{{Subject: "A", Predicate: "b", Object: "C"}},
		},
		{
			name: "quotes stripped",
			in:   `("A", 'b', "C")`,
			want: []Triple{{Subject: "A", Predicate: "b", Object: "C"}},
		},
		{
			name: "empty",
			in:   "no triples here",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseTriples(tt.in)); diff != "" {
				t.Errorf("ParseTriples() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatTriples_RoundTrip(t *testing.T) {
	triples := []Triple{
		{Subject: "X", Predicate: "based on", Object: "The Book"},
		{Subject: "The Book", Predicate: "author", Object: "Jane Doe"},
	}
	text := FormatTriples(triples)
	assert.Equal(t, "(X, based on, The Book), (The Book, author, Jane Doe)", text)
	assert.Equal(t, triples, ParseTriples(text))
}

func TestTripleSet(t *testing.T) {
	s := NewTripleSet()
	a := Triple{Subject: "A", Predicate: "b", Object: "C"}
	d := Triple{Subject: "D", Predicate: "e", Object: "F"}

	assert.True(t, s.Add(a))
	assert.False(t, s.Add(a))
	assert.False(t, s.Add(Triple{Subject: "A"}))

	added := s.Merge([]Triple{a, d, d})
	assert.Equal(t, []Triple{d}, added)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(d))
	assert.Equal(t, []Triple{a, d}, s.Items())

	items := s.Items()
	items[0] = d
	assert.Equal(t, a, s.Items()[0], "Items must return a copy")
}
