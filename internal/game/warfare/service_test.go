package warfare

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/condition"
	"github.com/cory-johannsen/knw/internal/game/dice"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
	"github.com/cory-johannsen/knw/internal/i18n"
)

type fixedSource struct{ v int }

func (s fixedSource) Intn(n int) int { return s.v % n }

type recordingObserver struct{ rolls []StatRoll }

func (o *recordingObserver) StatRolled(_ context.Context, r StatRoll) error {
	o.rolls = append(o.rolls, r)
	return nil
}

type harness struct {
	svc      *Service
	store    *document.MemoryStore
	chat     *chat.Recorder
	observer *recordingObserver
	owner    actor.User
}

func newHarness(t *testing.T, roll int) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cat, err := i18n.Load("en-US")
	require.NoError(t, err)
	statuses, err := condition.LoadDirectory("../../../content/statuses")
	require.NoError(t, err)
	store := document.NewMemoryStore()
	rec := chat.NewRecorder()
	obs := &recordingObserver{}
	h := &harness{
		svc: NewService(Deps{
			Rules:    ruleset.Default(),
			Store:    store,
			Members:  actor.NewStoreDirectory(store),
			Statuses: statuses,
			Roller:   dice.NewLoggedRoller(fixedSource{v: roll}, logger),
			Chat:     rec,
			Notifier: rec,
			Locale:   cat,
			Observer: obs,
			Logger:   logger,
		}),
		store:    store,
		chat:     rec,
		observer: obs,
		owner:    actor.User{ID: "owner"},
	}
	return h
}

func (h *harness) actor(t *testing.T, id, name, pack, system string) {
	t.Helper()
	_, err := h.store.Create(context.Background(), &document.Document{
		ID: id, Type: "character", Name: name, Pack: pack, System: json.RawMessage(system),
	})
	require.NoError(t, err)
}

func (h *harness) unit(t *testing.T, system string) string {
	t.Helper()
	_, err := h.store.Create(context.Background(), &document.Document{
		ID: "unit", Type: ruleset.TypeWarfare, Name: "Iron Guard", Owners: []string{"owner"}, System: json.RawMessage(system),
	})
	require.NoError(t, err)
	return "unit"
}

func requireNotice(t *testing.T, err error, key string) {
	t.Helper()
	var n *chat.Notice
	require.True(t, errors.As(err, &n), "want notice %s, got %v", key, err)
	assert.Equal(t, key, n.Key)
}

func TestRollStat_WithCommander(t *testing.T) {
	h := newHarness(t, 11)
	h.actor(t, "pc", "Aldric", "", `{"attributes":{"prof":3}}`)
	id := h.unit(t, `{"atk":2,"commander":"pc"}`)

	res, err := h.svc.RollStat(context.Background(), h.owner, id, StatAttack)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Natural())
	assert.Equal(t, 14, res.Total())

	msgs := h.chat.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Attack Test: Aldric", msgs[0].Flavor)
	assert.Equal(t, "Iron Guard", msgs[0].SpeakerName)
	assert.Equal(t, "1d20+2", msgs[0].Roll.Expression)
	require.Len(t, h.observer.rolls, 1)
	assert.Equal(t, "Aldric", h.observer.rolls[0].CommanderName)
}

func TestRollStat_WithoutCommander(t *testing.T) {
	h := newHarness(t, 0)
	id := h.unit(t, `{}`)
	res, err := h.svc.RollStat(context.Background(), h.owner, id, StatToughness)
	require.NoError(t, err)
	assert.Equal(t, 11, res.Total(), "1 + default toughness 10")
	assert.Equal(t, "Toughness Test: ", h.chat.Messages()[0].Flavor)
}

func TestRollStat_Rejections(t *testing.T) {
	h := newHarness(t, 0)
	id := h.unit(t, `{}`)
	_, err := h.svc.RollStat(context.Background(), h.owner, id, "dmg")
	assert.True(t, errors.Is(err, ErrUnknownStat))
	requireNotice(t, err, "KNW.Warfare.Statistics.Warning.Unknown")

	_, err = h.svc.RollStat(context.Background(), actor.User{ID: "stranger"}, id, StatAttack)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Empty(t, h.chat.Messages())
}

func TestCommanderName(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.actor(t, "pc", "Aldric", "", `{"attributes":{"prof":3}}`)
	id := h.unit(t, `{"commander":"pc"}`)
	rec, err := h.svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Aldric", h.svc.CommanderName(ctx, rec))

	rec.Unit.Commander = ""
	assert.Equal(t, "None", h.svc.CommanderName(ctx, rec))
	rec.Unit.Commander = "deleted"
	assert.Equal(t, "None", h.svc.CommanderName(ctx, rec))
}

func TestSetCommander_Policy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.actor(t, "pc", "Aldric", "", `{"attributes":{"prof":3}}`)
	h.actor(t, "packed", "Sir Compendium", "knw.heroes", `{"attributes":{"prof":3}}`)
	h.actor(t, "commoner", "Wolf", "", `{}`)
	id := h.unit(t, `{}`)

	_, err := h.svc.SetCommander(ctx, h.owner, id, "packed")
	requireNotice(t, err, "KNW.Warfare.Commander.Warning.Pack")
	_, err = h.svc.SetCommander(ctx, h.owner, id, "commoner")
	requireNotice(t, err, "KNW.Warfare.Commander.Warning.NoProf")
	assert.True(t, errors.Is(err, ErrRejectedCommander))

	rec, err := h.svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, rec.Unit.Commander, "rejected drops do not mutate")

	rec, err = h.svc.SetCommander(ctx, h.owner, id, "pc")
	require.NoError(t, err)
	assert.Equal(t, "pc", rec.Unit.Commander)
}

func TestClearCommander_Notifies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	h.actor(t, "pc", "Aldric", "", `{"attributes":{"prof":3}}`)
	id := h.unit(t, `{"commander":"pc"}`)

	rec, err := h.svc.ClearCommander(ctx, h.owner, id)
	require.NoError(t, err)
	assert.Empty(t, rec.Unit.Commander)
	notes := h.chat.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, chat.LevelInfo, notes[0].Level)
	assert.Equal(t, "Aldric no longer commands Iron Guard.", notes[0].Text)

	_, err = h.svc.ClearCommander(ctx, h.owner, id)
	require.NoError(t, err)
	assert.Len(t, h.chat.Notifications(), 1, "clearing an empty slot is silent")
}

func TestConfigureTraitsAndEditStat(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	id := h.unit(t, `{}`)

	rec, err := h.svc.ConfigureTraits(ctx, h.owner, id, "Adaptable; Stalwart")
	require.NoError(t, err)
	assert.Equal(t, []string{"Adaptable", "Stalwart"}, rec.Unit.Traits())

	for field, value := range map[string]string{
		"atk": "3", "mov": "2", "tier": "4", "experience": "veteran", "gear": "heavy",
		"type": "aerial", "ancestry": "Dwarf", "size.max": "8", "size.value": "5", "name": "Iron Guard II",
	} {
		_, err := h.svc.EditStat(ctx, h.owner, id, field, value)
		require.NoError(t, err, field)
	}
	rec, err = h.svc.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Unit.Atk)
	assert.Equal(t, 2, rec.Unit.Mov)
	assert.Equal(t, 4, rec.Unit.Tier)
	assert.Equal(t, "veteran", rec.Unit.Experience)
	assert.Equal(t, "heavy", rec.Unit.Gear)
	assert.Equal(t, "aerial", rec.Unit.Type)
	assert.Equal(t, "Dwarf", rec.Unit.Ancestry)
	assert.Equal(t, Size{Value: 5, Max: 8}, rec.Unit.Size)
	assert.Equal(t, "Iron Guard II", rec.Doc.Name)

	for field, value := range map[string]string{
		"atk": "x", "tier": "6", "experience": "legendary", "type": "naval", "size.max": "-1", "commander": "pc",
	} {
		_, err := h.svc.EditStat(ctx, h.owner, id, field, value)
		assert.True(t, errors.Is(err, ErrInvalidValue), field)
	}
}

func TestEffects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	id := h.unit(t, `{}`)

	rec, effectID, err := h.svc.CreateEffect(ctx, h.owner, id, "")
	require.NoError(t, err)
	require.Len(t, rec.Unit.Effects, 1)
	assert.Equal(t, "New Effect", rec.Unit.Effects[0].Name)
	assert.Equal(t, DefaultEffectImg, rec.Unit.Effects[0].Img)

	rec, err = h.svc.ToggleEffect(ctx, h.owner, id, effectID)
	require.NoError(t, err)
	assert.True(t, rec.Unit.Effects[0].Disabled)
	rec, err = h.svc.ToggleEffect(ctx, h.owner, id, effectID)
	require.NoError(t, err)
	assert.False(t, rec.Unit.Effects[0].Disabled)

	_, err = h.svc.ToggleEffect(ctx, h.owner, id, "nope")
	assert.True(t, errors.Is(err, ErrUnknownEffect))

	rec, err = h.svc.DeleteEffect(ctx, h.owner, id, effectID)
	require.NoError(t, err)
	assert.Empty(t, rec.Unit.Effects)
	_, err = h.svc.DeleteEffect(ctx, h.owner, id, effectID)
	assert.True(t, errors.Is(err, ErrUnknownEffect))
}

func TestToggleStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	id := h.unit(t, `{}`)

	rec, active, err := h.svc.ToggleStatus(ctx, h.owner, id, "hidden")
	require.NoError(t, err)
	assert.True(t, active)
	require.Len(t, rec.Unit.Effects, 1)
	assert.Equal(t, "Hidden", rec.Unit.Effects[0].Name)
	assert.True(t, h.svc.ActiveStatuses(rec).Has("hidden"))

	rec, active, err = h.svc.ToggleStatus(ctx, h.owner, id, "hidden")
	require.NoError(t, err)
	assert.False(t, active)
	assert.Empty(t, rec.Unit.Effects)
	assert.False(t, h.svc.ActiveStatuses(rec).Has("hidden"))

	_, _, err = h.svc.ToggleStatus(ctx, h.owner, id, "prone")
	assert.True(t, errors.Is(err, ErrUnknownStatus))
}

func TestCreate(t *testing.T) {
	h := newHarness(t, 0)
	rec, err := h.svc.Create(context.Background(), h.owner, "Levy Spears")
	require.NoError(t, err)
	assert.Equal(t, ruleset.TypeWarfare, rec.Doc.Type)
	assert.Equal(t, New(), rec.Unit)
}
