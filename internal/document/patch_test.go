package document

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func orgDoc(t *testing.T) *Document {
	t.Helper()
	return &Document{
		ID:     "org-1",
		Type:   "knw-actors.organization",
		Name:   "House Veyra",
		System: json.RawMessage(`{"size":2,"powerPool":{"m1":null,"m2":3}}`),
	}
}

func TestFromMap_DeleteKey(t *testing.T) {
	p, err := FromMap(map[string]any{
		"system.powerPool.-=m1": nil,
		"system.powerPool.m2":   2,
	})
	require.NoError(t, err)
	require.Len(t, p, 2)
	assert.Equal(t, Unset("system.powerPool.m1"), p[0])
	assert.Equal(t, Set("system.powerPool.m2", 2), p[1])
}

func TestFromMap_Invalid(t *testing.T) {
	_, err := FromMap(map[string]any{"": 1})
	assert.Error(t, err)
	_, err = FromMap(map[string]any{"system.powerPool.-=": nil})
	assert.Error(t, err)
}

func TestPatchMap_RoundTripsDeleteConvention(t *testing.T) {
	p := Patch{Unset("system.powerPool.m1"), Set("system.size", 3)}
	m := p.Map()
	assert.Contains(t, m, "system.powerPool.-=m1")
	assert.Equal(t, 3, m["system.size"])
}

func TestApply_SetsAndDeletesPoolEntries(t *testing.T) {
	d := orgDoc(t)
	p := Patch{
		Set(Join("system", "powerPool", "m1"), 4),
		Unset(Join("system", "powerPool", "m2")),
		Set("name", "House Veyra Reborn"),
	}
	require.NoError(t, p.Apply(d))

	assert.Equal(t, "House Veyra Reborn", d.Name)
	assert.Equal(t, int64(4), d.Lookup("system.powerPool.m1").Int())
	assert.False(t, d.Has("system.powerPool.m2"))
	assert.Equal(t, int64(2), d.Lookup("system.size").Int())
}

func TestApply_NullValueKeepsKey(t *testing.T) {
	d := orgDoc(t)
	require.NoError(t, Patch{Set("system.powerPool.m2", nil)}.Apply(d))
	r := d.Lookup("system.powerPool.m2")
	assert.True(t, r.Exists())
	assert.Equal(t, "null", r.Raw)
}

func TestApply_RejectsUnknownRoot(t *testing.T) {
	d := orgDoc(t)
	before := string(d.System)
	err := Patch{Set("system.size", 4), Set("flags.x", 1)}.Apply(d)
	require.Error(t, err)
	assert.Equal(t, before, string(d.System), "failed patch leaves the document unchanged")
}

func TestApply_NameRequiresString(t *testing.T) {
	d := orgDoc(t)
	assert.Error(t, Patch{Set("name", 3)}.Apply(d))
}

func TestJoin_EscapesSeparators(t *testing.T) {
	d := orgDoc(t)
	require.NoError(t, Patch{Set(Join("system", "powerPool", "a.b"), 1)}.Apply(d))
	assert.Equal(t, int64(1), d.Lookup(Join("system", "powerPool", "a.b")).Int())
	assert.False(t, d.Has("system.powerPool.a"))
}

func TestLookup_EnvelopeFields(t *testing.T) {
	d := orgDoc(t)
	assert.Equal(t, "House Veyra", d.Lookup("name").String())
	assert.Equal(t, "knw-actors.organization", d.Lookup("type").String())
	assert.False(t, d.Lookup("owners").Exists())
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Create(ctx, orgDoc(t))
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.Create(ctx, orgDoc(t))
	assert.Error(t, err, "duplicate id")

	updated, err := s.Update(ctx, "org-1", Patch{Unset("system.powerPool.m1")})
	require.NoError(t, err)
	assert.False(t, updated.Has("system.powerPool.m1"))

	got, err := s.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(updated.System), string(got.System))

	list, err := s.List(ctx, "knw-actors.organization")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = s.List(ctx, "knw-actors.warfare")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Delete(ctx, "org-1"))
	_, err = s.Get(ctx, "org-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_PackDocumentsAreReadOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	d := orgDoc(t)
	d.Pack = "knw.units"
	_, err := s.Create(ctx, d)
	require.NoError(t, err)

	_, err = s.Update(ctx, d.ID, Patch{Set("system.size", 5)})
	assert.True(t, errors.Is(err, ErrReadOnly))
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Create(ctx, orgDoc(t))
	require.NoError(t, err)

	got, err := s.Get(ctx, "org-1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "House Veyra", again.Name)
}

func TestPropertySetThenLookup(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9.\-]{0,12}`).Draw(t, "key")
		v := rapid.IntRange(-100, 100).Draw(t, "value")
		d := &Document{ID: "x", System: json.RawMessage(`{"powerPool":{}}`)}
		path := Join("system", "powerPool", key)
		if err := (Patch{Set(path, v)}).Apply(d); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if got := d.Lookup(path).Int(); got != int64(v) {
			t.Fatalf("lookup %q = %d, want %d", path, got, v)
		}
	})
}
