// Package actor adapts external actor documents (player characters, NPCs)
// into the narrow capabilities organization pools and warfare commanders need.
package actor

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/cory-johannsen/knw/internal/document"
)

// TypeCharacter is the document type of characters created on this server.
const TypeCharacter = "character"

// Paths probed on external actor documents.
const (
	ProficiencyPath = "system.attributes.prof"
	skillsPath      = "system.skills"
)

// ErrMissingCapability matches every MissingCapabilityError.
var ErrMissingCapability = errors.New("actor lacks capability")

// MissingCapabilityError reports that an actor does not expose an attribute.
type MissingCapabilityError struct {
	ActorID    string
	Capability string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("actor %s has no %s", e.ActorID, e.Capability)
}

// Is makes errors.Is(err, ErrMissingCapability) succeed.
func (e *MissingCapabilityError) Is(target error) bool { return target == ErrMissingCapability }

// User is the identity acting through a session.
type User struct {
	ID   string
	Name string
	// GM users may edit and control every actor.
	GM bool
}

// CanEdit reports whether u may edit d's sheet.
func (u User) CanEdit(d *document.Document) bool {
	return u.GM || d.OwnedBy(u.ID)
}

// Member is an external actor that can join a power pool or command a unit.
type Member interface {
	ID() string
	Name() string
	// Pack is non-empty for read-only compendium actors.
	Pack() string
	// ProficiencyBonus returns a *MissingCapabilityError when the actor has no bonus.
	ProficiencyBonus() (int, error)
	// Proficient reports proficiency in a member skill such as "ins".
	Proficient(skill string) bool
	ControlledBy(u User) bool
}

// Character is a Member backed by an actor document.
type Character struct {
	doc *document.Document
}

// FromDocument wraps d.
//
// Precondition: d must be non-nil.
func FromDocument(d *document.Document) *Character {
	return &Character{doc: d}
}

func (c *Character) ID() string   { return c.doc.ID }
func (c *Character) Name() string { return c.doc.Name }
func (c *Character) Pack() string { return c.doc.Pack }

// ProficiencyBonus reads system.attributes.prof.
func (c *Character) ProficiencyBonus() (int, error) {
	r := c.doc.Lookup(ProficiencyPath)
	if r.Type != gjson.Number {
		return 0, &MissingCapabilityError{ActorID: c.doc.ID, Capability: ProficiencyPath}
	}
	return int(r.Int()), nil
}

// HasProficiency reports whether the proficiency attribute is present.
func (c *Character) HasProficiency() bool {
	_, err := c.ProficiencyBonus()
	return err == nil
}

// Proficient treats a skill multiplier of at least 1 as proficient; half
// proficiency does not count.
func (c *Character) Proficient(skill string) bool {
	return c.doc.Lookup(skillsPath + "." + document.Join(skill, "value")).Float() >= 1
}

// ControlledBy reports whether u owns the actor or is a GM.
func (c *Character) ControlledBy(u User) bool { return u.CanEdit(c.doc) }

// NewCharacterDocument returns a character document named name with
// proficiency bonus prof, owned by owner.
func NewCharacterDocument(name string, prof int, owner string) (*document.Document, error) {
	d, err := document.New(TypeCharacter, name, map[string]any{
		"attributes": map[string]any{"prof": prof},
		"skills":     map[string]any{},
	})
	if err != nil {
		return nil, err
	}
	if owner != "" {
		d.Owners = []string{owner}
	}
	return d, nil
}

// Directory resolves actor ids to members.
type Directory interface {
	Member(ctx context.Context, id string) (Member, error)
}

// StoreDirectory resolves members from a document store.
type StoreDirectory struct {
	store document.Store
}

// NewStoreDirectory returns a Directory over store.
func NewStoreDirectory(store document.Store) *StoreDirectory {
	return &StoreDirectory{store: store}
}

// Member loads the actor document with id.
//
// Postcondition: Returns an error wrapping document.ErrNotFound for unknown ids.
func (d *StoreDirectory) Member(ctx context.Context, id string) (Member, error) {
	doc, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving actor %s: %w", id, err)
	}
	return FromDocument(doc), nil
}
