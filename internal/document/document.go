// Package document models actor records as typed envelopes around a JSON
// "system" payload, and applies partial updates expressed as dotted paths:
//
//	{"system.powerPool.<memberID>": 3}   set a nested value
//	{"system.powerPool.-=<memberID>": nil} delete a map key
//
// Stores persist documents; the rules packages decode System into their own
// schema types and emit Patches.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// ErrReadOnly is returned when a pack-sourced document is updated.
var ErrReadOnly = errors.New("document is read-only")

// Document is one persisted actor.
type Document struct {
	ID   string
	Type string
	Name string
	Img  string
	// Pack names the read-only content pack the document came from; empty for world documents.
	Pack string
	// Owners lists the user ids allowed to control the actor.
	Owners    []string
	System    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a world document with a fresh id and the given system payload.
//
// Postcondition: ID is a new UUID; System is the JSON encoding of system.
func New(docType, name string, system any) (*Document, error) {
	raw, err := json.Marshal(system)
	if err != nil {
		return nil, fmt.Errorf("encoding %s system: %w", docType, err)
	}
	return &Document{
		ID:     uuid.NewString(),
		Type:   docType,
		Name:   name,
		System: raw,
	}, nil
}

// Decode unmarshals the system payload into v.
func (d *Document) Decode(v any) error {
	if len(d.System) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.System, v); err != nil {
		return fmt.Errorf("decoding %s %s: %w", d.Type, d.ID, err)
	}
	return nil
}

// Lookup reads a dotted path such as "system.attributes.prof".
// Only "name", "img", "type" and "system." paths are resolvable.
func (d *Document) Lookup(path string) gjson.Result {
	switch path {
	case "name":
		return gjson.Parse(quote(d.Name))
	case "img":
		return gjson.Parse(quote(d.Img))
	case "type":
		return gjson.Parse(quote(d.Type))
	}
	rel, ok := systemPath(path)
	if !ok {
		return gjson.Result{}
	}
	return gjson.GetBytes(d.System, rel)
}

// Has reports whether a dotted path exists, mirroring a property probe.
func (d *Document) Has(path string) bool {
	return d.Lookup(path).Exists()
}

// OwnedBy reports whether userID is listed as an owner.
func (d *Document) OwnedBy(userID string) bool {
	for _, o := range d.Owners {
		if o == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.Owners = append([]string(nil), d.Owners...)
	c.System = append(json.RawMessage(nil), d.System...)
	return &c
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Store persists documents. Update applies a Patch atomically per document;
// read-modify-write sequences spanning several calls are not serialized.
type Store interface {
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, docType string) ([]*Document, error)
	Create(ctx context.Context, d *Document) (*Document, error)
	Update(ctx context.Context, id string, p Patch) (*Document, error)
	Delete(ctx context.Context, id string) error
}
