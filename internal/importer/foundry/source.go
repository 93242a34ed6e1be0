// Package foundry reads actors exported from a Foundry VTT world: single
// actor exports (*.json, an object or an array of objects) and NeDB
// compendium packs (*.db, one JSON object per line).
package foundry

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/cory-johannsen/knw/internal/importer"
)

var _ importer.Source = (*Source)(nil)

// maxLine bounds one NeDB record.
const maxLine = 4 << 20

// Source implements importer.Source for Foundry exports.
type Source struct{}

// NewSource constructs a Source.
func NewSource() *Source { return &Source{} }

// Load reads every *.json and *.db file directly inside sourceDir, in
// lexicographic order. Records that are not actors (no "type" or "name") and
// NeDB deletion markers are skipped.
//
// Postcondition: Returns an error naming the file on malformed JSON.
func (s *Source) Load(sourceDir string) ([]*importer.ActorData, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source dir %q: %w", sourceDir, err)
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".json" || ext == ".db") {
			files = append(files, filepath.Join(sourceDir, e.Name()))
		}
	}
	sort.Strings(files)

	var out []*importer.ActorData
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var actors []*importer.ActorData
		if filepath.Ext(path) == ".db" {
			actors, err = parseNeDB(path, data)
		} else {
			actors, err = parseExport(path, data)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, actors...)
	}
	return out, nil
}

func parseExport(origin string, data []byte) ([]*importer.ActorData, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: invalid JSON", origin)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		if a := actorFrom(origin, root); a != nil {
			return []*importer.ActorData{a}, nil
		}
		return nil, nil
	}
	var out []*importer.ActorData
	for i, r := range root.Array() {
		if a := actorFrom(fmt.Sprintf("%s[%d]", origin, i), r); a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func parseNeDB(origin string, data []byte) ([]*importer.ActorData, error) {
	var out []*importer.ActorData
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		where := fmt.Sprintf("%s:%d", origin, line)
		if !gjson.ValidBytes(raw) {
			return nil, fmt.Errorf("%s: invalid JSON", where)
		}
		r := gjson.ParseBytes(raw)
		if r.Get("$$deleted").Bool() {
			continue
		}
		if a := actorFrom(where, r); a != nil {
			out = append(out, a)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", origin, err)
	}
	return out, nil
}

// actorFrom reads one actor record. Exports before Foundry v10 keep the
// payload under "data" instead of "system".
func actorFrom(origin string, r gjson.Result) *importer.ActorData {
	if !r.IsObject() {
		return nil
	}
	typ, name := r.Get("type").String(), r.Get("name").String()
	if typ == "" || name == "" {
		return nil
	}
	system := r.Get("system")
	if !system.Exists() {
		system = r.Get("data")
	}
	a := &importer.ActorData{
		ID:     strings.TrimSpace(r.Get("_id").String()),
		Type:   typ,
		Name:   name,
		Img:    r.Get("img").String(),
		Origin: origin,
	}
	if system.IsObject() {
		a.System = []byte(system.Raw)
	}
	return a
}
