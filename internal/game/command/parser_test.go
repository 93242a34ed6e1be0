package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result := Parse("   ")
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result := Parse("look")
	assert.Equal(t, "look", result.Command)
	assert.Nil(t, result.Args)
	assert.Equal(t, "", result.RawArgs)
}

func TestParse_Lowercase(t *testing.T) {
	assert.Equal(t, "roll-skill", Parse("ROLL-Skill dip").Command)
}

func TestParse_ExtraWhitespace(t *testing.T) {
	result := Parse("  say   hold   the line  ")
	assert.Equal(t, "say", result.Command)
	assert.Equal(t, []string{"hold", "the", "line"}, result.Args)
	assert.Equal(t, "hold   the line", result.RawArgs)
}

func TestBind_Positional(t *testing.T) {
	got, err := Bind([]string{"group", "key", "points"}, []string{"skills", "dip", "4"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"group": "skills", "key": "dip", "points": "4"}, got)
}

func TestBind_LastParamTakesRemainder(t *testing.T) {
	got, err := Bind([]string{"field", "value"}, strings.Fields("features Holds the river ford"))
	require.NoError(t, err)
	assert.Equal(t, "features", got["field"])
	assert.Equal(t, "Holds the river ford", got["value"])
}

func TestBind_Named(t *testing.T) {
	got, err := Bind([]string{"skill", "prof"}, []string{"prof=false", "ins"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"skill": "ins", "prof": "false"}, got)
}

func TestBind_UnknownNameIsPositional(t *testing.T) {
	got, err := Bind([]string{"name"}, []string{"a=b"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", got["name"])
}

func TestBind_MissingParamsOmitted(t *testing.T) {
	got, err := Bind([]string{"member", "value"}, []string{"aldric"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"member": "aldric"}, got)
}

func TestBind_Errors(t *testing.T) {
	_, err := Bind(nil, []string{"extra"})
	assert.Error(t, err)

	_, err = Bind([]string{"stat"}, []string{"stat=atk", "stat=pow"})
	assert.Error(t, err)

	_, err = Bind([]string{"stat"}, []string{"stat=atk", "pow"})
	assert.Error(t, err, "no free parameter remains")

	got, err := Bind(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z\-]{1,20}`).Draw(t, "word")
		result := Parse(word)
		if result.Command != strings.ToLower(word) {
			t.Fatalf("Parse(%q).Command = %q", word, result.Command)
		}
	})
}

// Property: binding as many words as parameters fills each parameter in order.
func TestPropertyBindFillsInOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(t, "n")
		params := make([]string, n)
		args := make([]string, n)
		for i := range params {
			params[i] = "p" + strings.Repeat("x", i)
			args[i] = rapid.StringMatching(`[a-z0-9]{1,8}`).Draw(t, "arg")
		}
		got, err := Bind(params, args)
		if err != nil {
			t.Fatalf("Bind: %v", err)
		}
		for i, p := range params {
			if got[p] != args[i] {
				t.Fatalf("param %s = %q, want %q", p, got[p], args[i])
			}
		}
	})
}
