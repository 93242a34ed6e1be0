package importer

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// NameToID converts a display name to a stable snake_case identifier.
//
// Postcondition: result is lowercase, contains only [a-z0-9_], and is
// idempotent (NameToID(NameToID(s)) == NameToID(s)).
func NameToID(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// typeAliases maps exported actor types onto the document types the server
// knows. Player characters and NPCs of the host system both become characters.
var typeAliases = map[string]string{
	ruleset.TypeOrganization: ruleset.TypeOrganization,
	ruleset.TypeWarfare:      ruleset.TypeWarfare,
	actor.TypeCharacter:      actor.TypeCharacter,
	"npc":                    actor.TypeCharacter,
}

// ToDocument converts a to a read-only document of pack.
//
// Precondition: pack must be non-empty.
// Postcondition: The document id is "<pack>.<id>", where id is the exported
// id or NameToID(a.Name); an unknown type or a missing name is an error.
func ToDocument(pack string, a *ActorData) (*document.Document, error) {
	docType, ok := typeAliases[a.Type]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported actor type %q", a.Origin, a.Type)
	}
	if strings.TrimSpace(a.Name) == "" {
		return nil, fmt.Errorf("%s: actor has no name", a.Origin)
	}
	id := a.ID
	if id == "" {
		id = NameToID(a.Name)
	}
	system := a.System
	if len(system) == 0 {
		system = []byte("{}")
	}
	return &document.Document{
		ID:     pack + "." + id,
		Type:   docType,
		Name:   a.Name,
		Img:    a.Img,
		Pack:   pack,
		System: system,
	}, nil
}
