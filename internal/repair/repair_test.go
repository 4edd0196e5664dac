package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docdeck/internal/audit"
)

type slide struct {
	Title   string `json:"title"`
	Formula string `json:"formula"`
	Summary string `json:"summary"`
}

func TestUnmarshal_ValidInputNoNotice(t *testing.T) {
	log := audit.NewLog()
	var got []slide
	err := Unmarshal(`[{"title":"A","summary":"line\nbreak"}]`, &got, Options{}, log)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "line\nbreak", got[0].Summary)
	assert.Equal(t, 0, log.Len())
}

func TestUnmarshal_EscapeClass(t *testing.T) {
	log := audit.NewLog()
	var got []slide
	err := Unmarshal(`[{"title":"Area","formula":"\pi r^2"}]`, &got, Options{}, log)
	require.NoError(t, err)
	assert.Equal(t, `\pi r^2`, got[0].Formula)
	assert.Equal(t, 1, log.Count(audit.CategoryRepaired))
}

func TestUnmarshal_ControlCharClass(t *testing.T) {
	log := audit.NewLog()
	var got []slide
	err := Unmarshal("[{\"title\":\"A\",\"summary\":\"one\ntwo\tthree\"}]", &got, Options{}, log)
	require.NoError(t, err)
	assert.Equal(t, "one two three", got[0].Summary)
	assert.Equal(t, 1, log.Count(audit.CategoryRepaired))
}

func TestUnmarshal_BothClasses(t *testing.T) {
	log := audit.NewLog()
	var got []slide
	err := Unmarshal("[{\"formula\":\"\\alpha\",\"summary\":\"a\nb\"}]", &got, Options{}, log)
	require.NoError(t, err)
	assert.Equal(t, `\alpha`, got[0].Formula)
	assert.Equal(t, "a b", got[0].Summary)
	assert.Equal(t, 2, log.Count(audit.CategoryRepaired))
}

func TestUnmarshal_UnknownClassFails(t *testing.T) {
	log := audit.NewLog()
	var got []slide
	err := Unmarshal(`[{"title":"A",}]`, &got, Options{}, log)
	require.Error(t, err)

	var pe *OutlineParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ClassUnknown, pe.Class)
	assert.Equal(t, 0, log.Len())
}

func TestUnmarshal_StructuralOptIn(t *testing.T) {
	log := audit.NewLog()
	var got []slide
	err := Unmarshal(`[{"title":"A",}]`, &got, Options{Structural: true}, log)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, 1, log.Count(audit.CategoryRepaired))
}

func TestUnmarshal_ShapeMismatch(t *testing.T) {
	var got []slide
	err := Unmarshal(`{"title":"not an array"}`, &got, Options{}, nil)
	require.Error(t, err)
	assert.True(t, IsParseError(err))

	var pe *OutlineParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ClassShape, pe.Class)
}

func TestUnmarshal_EmptyInput(t *testing.T) {
	var got []slide
	err := Unmarshal("   ", &got, Options{}, nil)
	assert.True(t, IsParseError(err))
}

func TestDoubleBackslashes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`\pi`, `\\pi`},
		{`\\pi`, `\\pi`},
		{`say \"hi\"`, `say \"hi\"`},
		{`a\nb`, `a\\nb`},
		{`end\`, `end\\`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DoubleBackslashes(tt.in), "input %q", tt.in)
	}
}

func TestRepair_ReportsAppliedClassesInOrder(t *testing.T) {
	_, applied, err := Repair("{\"f\":\"\\x\",\"s\":\"a\nb\"}", Options{})
	require.NoError(t, err)
	assert.Equal(t, []Class{ClassEscape, ClassControl}, applied)
}
