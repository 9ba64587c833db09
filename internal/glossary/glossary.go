// Package glossary loads the abbreviation -> expansion mapping that is
// injected into post-processing prompts.
package glossary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// MaxEntries caps how many entries a glossary file can contribute.
const MaxEntries = 500

// Map is an immutable abbreviation -> expansion mapping. The zero value is
// an empty glossary.
type Map struct {
	entries map[string]string
	keys    []string // sorted
}

// Entry is a single abbreviation and its expansion.
type Entry struct {
	Key   string
	Value string
}

func (m Map) Len() int { return len(m.keys) }

func (m Map) Get(key string) (string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Keys returns the abbreviations in sorted order.
func (m Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Entries returns all pairs sorted by key.
func (m Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, Entry{Key: k, Value: m.entries[k]})
	}
	return out
}

// FromPairs builds a Map from in-memory pairs using the same rules as Parse.
func FromPairs(pairs map[string]string) Map {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := Map{entries: make(map[string]string)}
	for _, k := range keys {
		key, value := strings.TrimSpace(k), strings.TrimSpace(pairs[k])
		if !m.add(key, value) {
			break
		}
	}
	return m
}

// add inserts key unless it is empty, already present, or the map is full.
// It returns false once the map holds MaxEntries entries.
func (m *Map) add(key, value string) bool {
	if len(m.keys) >= MaxEntries {
		return false
	}
	if key == "" || value == "" {
		return true
	}
	if _, dup := m.entries[key]; dup {
		return true
	}
	m.entries[key] = value
	m.keys = append(m.keys, key)
	return len(m.keys) < MaxEntries
}

// Parse reads `key = value` lines. Blank lines and lines starting with '#'
// are ignored, lines without '=' are skipped, the first occurrence of a key
// wins, and parsing stops after MaxEntries entries.
func Parse(r io.Reader) (Map, error) {
	m := Map{entries: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if !m.add(strings.TrimSpace(key), strings.TrimSpace(value)) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return Map{}, fmt.Errorf("read glossary: %w", err)
	}

	sort.Strings(m.keys)
	return m, nil
}

// Load parses the glossary file at path. A missing file yields an empty map.
func Load(path string) (Map, error) {
	if path == "" {
		return Map{}, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Map{}, nil
	}
	if err != nil {
		return Map{}, fmt.Errorf("open glossary %s: %w", path, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return Map{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
