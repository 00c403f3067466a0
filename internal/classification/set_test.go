package classification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetNormalizes(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"blank only", []string{"", "  ", "\t"}, []string{}},
		{"trim and dedupe", []string{"Comment", " Keyword ", "Comment", ""}, []string{"Comment", "Keyword"}},
		{"case preserved", []string{"comment", "Comment"}, []string{"Comment", "comment"}},
		{"inner space kept", []string{"  xml doc comment "}, []string{"xml doc comment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet(tt.raw)
			assert.Equal(t, tt.want, s.Names())
			assert.Equal(t, len(tt.want), s.Len())
		})
	}
}

func TestParseList(t *testing.T) {
	s := ParseList("Comment, Keyword,,  type ,Comment")
	assert.Equal(t, []string{"Comment", "Keyword", "type"}, s.Names())

	assert.True(t, ParseList("").IsEmpty())
	assert.True(t, ParseList(" , ,").IsEmpty())
}

func TestZeroValueIsEmpty(t *testing.T) {
	var s Set
	assert.True(t, s.IsEmpty())
	assert.False(t, s.Contains("Comment"))
	assert.Equal(t, "", s.String())
	assert.True(t, s.Equal(Empty()))
}

func TestContainsIsExact(t *testing.T) {
	s := NewSet([]string{" Comment "})
	assert.True(t, s.Contains("Comment"))
	assert.False(t, s.Contains(" Comment "))
	assert.False(t, s.Contains("comment"))
}

func TestWithWithoutReturnNewSets(t *testing.T) {
	base := NewSet([]string{"a", "b"})

	added := base.With(" c ")
	removed := base.Without("a")

	assert.Equal(t, []string{"a", "b"}, base.Names())
	assert.Equal(t, []string{"a", "b", "c"}, added.Names())
	assert.Equal(t, []string{"b"}, removed.Names())
	assert.Equal(t, []string{"a", "b"}, base.With("").Names())
}

func TestNamesIsCopy(t *testing.T) {
	s := NewSet([]string{"a"})
	names := s.Names()
	names[0] = "mutated"
	assert.True(t, s.Contains("a"))
}

func TestEqual(t *testing.T) {
	a := NewSet([]string{"x", "y"})
	b := ParseList("y,x")
	c := NewSet([]string{"x"})
	d := NewSet([]string{"x", "z"})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func TestString(t *testing.T) {
	assert.Equal(t, "Comment, Keyword", NewSet([]string{"Keyword", "Comment"}).String())
}
