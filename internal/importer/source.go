package importer

import "encoding/json"

// ActorData is the intermediate form produced by every Source: one actor of
// an exported compendium, before it becomes a pack document.
type ActorData struct {
	// ID is the exported id; empty when the export carried none.
	ID     string
	Type   string
	Name   string
	Img    string
	System json.RawMessage
	// Origin names the file the actor was read from, for error messages.
	Origin string
}

// Source loads actors from a format-specific export directory.
//
// Precondition: sourceDir must exist and hold the layout the format expects.
// Postcondition: Returns the actors found, or a non-nil error naming the bad file.
type Source interface {
	Load(sourceDir string) ([]*ActorData, error)
}
