package importer_test

import (
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/knw/internal/importer"
)

func TestNameToID_Lowercase(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringOf(rapid.RuneFrom(nil, unicode.Letter, unicode.Digit)).Draw(t, "name")
		id := importer.NameToID(name)
		for _, r := range id {
			assert.True(t, r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'),
				"unexpected char %q in id %q", r, id)
		}
	})
}

func TestNameToID_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringOf(rapid.RuneFrom(nil, unicode.Letter, unicode.Digit)).Draw(t, "name")
		id := importer.NameToID(name)
		assert.Equal(t, id, importer.NameToID(id))
	})
}

func TestNameToID_KnownValues(t *testing.T) {
	cases := map[string]string{
		"House Veyra":      "house_veyra",
		"Iron Guard 2":     "iron_guard_2",
		"Bryn's Outriders": "bryns_outriders",
	}
	for in, want := range cases {
		assert.Equal(t, want, importer.NameToID(in), in)
	}
}

func TestToDocument(t *testing.T) {
	d, err := importer.ToDocument("heroes", &importer.ActorData{ID: "h1", Type: "npc", Name: "Bryn"})
	require.NoError(t, err)
	assert.Equal(t, "heroes.h1", d.ID)
	assert.Equal(t, "character", d.Type)
	assert.Equal(t, "heroes", d.Pack)
	assert.JSONEq(t, `{}`, string(d.System))

	d, err = importer.ToDocument("units", &importer.ActorData{Type: "knw-actors.warfare", Name: "Iron Guard"})
	require.NoError(t, err)
	assert.Equal(t, "units.iron_guard", d.ID)
}

func TestToDocument_Rejects(t *testing.T) {
	_, err := importer.ToDocument("p", &importer.ActorData{Type: "vehicle", Name: "Cart", Origin: "carts.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carts.json")

	_, err = importer.ToDocument("p", &importer.ActorData{Type: "character", Name: "  "})
	assert.Error(t, err)
}
