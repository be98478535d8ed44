package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for document-level failures. Leaf-package errors like
// these are wrapped with the facade's higher-level kinds
// (sorter.ErrFileAccess, sorter.ErrConditionSyntax) at the pkg/sorter
// boundary.
var (
	ErrDocumentRead      = errors.New("metadata document could not be read")
	ErrDocumentFormat    = errors.New("metadata document is not a valid mapping")
	ErrDuplicatePlugin   = errors.New("metadata document has two entries for the same plugin name")
	ErrDocumentWrite     = errors.New("metadata document could not be written")
	ErrOverwriteRefused  = errors.New("refusing to overwrite existing file")
)

// MetadataDocument aggregates the bash tag whitelist, group declarations,
// general messages, and per-plugin metadata loaded from a single YAML file
// (the masterlist or a userlist).
type MetadataDocument struct {
	BashTags     map[string]struct{}
	Groups       map[string]Group
	Messages     []Message
	ExactPlugins map[string]PluginMetadata
	RegexPlugins []PluginMetadata
}

// New returns an empty MetadataDocument with the "default" pseudo-group
// present.
func New() *MetadataDocument {
	return &MetadataDocument{
		BashTags:     make(map[string]struct{}),
		Groups:       map[string]Group{DefaultGroupName: NewGroup(DefaultGroupName)},
		ExactPlugins: make(map[string]PluginMetadata),
	}
}

// Clear resets the document to its empty state.
func (d *MetadataDocument) Clear() {
	*d = *New()
}

type rawDocument struct {
	BashTags []string         `yaml:"bash_tags"`
	Groups   []Group          `yaml:"groups"`
	Globals  []Message        `yaml:"globals"`
	Plugins  []PluginMetadata `yaml:"plugins"`
}

// Load clears the document then parses path as a YAML metadata document.
// All failures leave the document empty (atomic replace on success).
func (d *MetadataDocument) Load(path string) error {
	d.Clear()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentRead, path, err)
	}
	data = decodeToUTF8(data)

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentFormat, path, err)
	}
	if len(root.Content) == 0 {
		d.Clear()
		return nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: %s: root is not a mapping", ErrDocumentFormat, path)
	}
	if err := checkUnknownKeys(mapping, allowedDocumentKeys, "document"); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentFormat, path, err)
	}

	var raw rawDocument
	if err := mapping.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentFormat, path, err)
	}

	next := New()
	for _, t := range raw.BashTags {
		next.BashTags[t] = struct{}{}
	}
	for _, g := range raw.Groups {
		next.Groups[g.Name] = g
	}
	next.Groups[DefaultGroupName] = NewGroup(DefaultGroupName)
	next.Messages = raw.Globals

	for _, p := range raw.Plugins {
		if p.IsRegex() {
			next.RegexPlugins = append(next.RegexPlugins, p)
			continue
		}
		key := p.key()
		if _, exists := next.ExactPlugins[key]; exists {
			return fmt.Errorf("%w: %s: %s", ErrDuplicatePlugin, path, p.Name)
		}
		next.ExactPlugins[key] = p
	}

	*d = *next
	return nil
}

// Save serialises the document to path: bash_tags, groups, globals, then
// every plugin (exact entries first, each in map order, then regex entries
// in declaration order), omitting name-only entries. The write is atomic: a
// temp file is written and renamed over path, so a failure mid-write never
// leaves a half-written file.
func (d *MetadataDocument) Save(path string) error {
	raw := rawDocument{
		Globals: d.Messages,
	}
	for t := range d.BashTags {
		raw.BashTags = append(raw.BashTags, t)
	}
	for name, g := range d.Groups {
		if name == DefaultGroupName && len(g.After) == 0 {
			continue
		}
		raw.Groups = append(raw.Groups, g)
	}
	for _, p := range d.ExactPlugins {
		if !p.IsNameOnly() {
			raw.Plugins = append(raw.Plugins, p)
		}
	}
	for _, p := range d.RegexPlugins {
		if !p.IsNameOnly() {
			raw.Plugins = append(raw.Plugins, p)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentWrite, path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentWrite, path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentWrite, path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %v", ErrDocumentWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentWrite, path, err)
	}
	return nil
}

// FindPlugin looks up name, case-insensitively, among the exact entries,
// then merges in (Merge, in declaration order) every regex entry whose
// pattern matches name. The returned value's Name is always name's original
// casing from the query, never the matching entry's.
func (d *MetadataDocument) FindPlugin(name string) (PluginMetadata, error) {
	result := NewPluginMetadata(name)
	if exact, ok := d.ExactPlugins[Fold(name)]; ok {
		result = Merge(result, exact)
	}
	for _, candidate := range d.RegexPlugins {
		matched, err := regexMatches(candidate.Name, name)
		if err != nil {
			return PluginMetadata{}, err
		}
		if matched {
			// Dirty/clean info are skipped for regex entries: cleaning data
			// is keyed to one specific file's CRC and doesn't make sense
			// merged across every plugin a pattern matches.
			stripped := candidate
			stripped.DirtyInfo, stripped.CleanInfo = nil, nil
			result = Merge(result, stripped)
		}
	}
	result.Name = name
	return result, nil
}

// AddPlugin inserts or replaces the exact (non-regex) entry for p.Name.
func (d *MetadataDocument) AddPlugin(p PluginMetadata) error {
	if p.IsRegex() {
		return fmt.Errorf("%w: %s: regex entries are kept in RegexPlugins", ErrDocumentFormat, p.Name)
	}
	d.ExactPlugins[p.key()] = p
	return nil
}

// ErasePlugin removes the exact entry for name, if any.
func (d *MetadataDocument) ErasePlugin(name string) {
	delete(d.ExactPlugins, Fold(name))
}

// SetGroups replaces the group set, re-adding the "default" pseudo-group if
// the caller omitted it.
func (d *MetadataDocument) SetGroups(groups []Group) {
	next := map[string]Group{DefaultGroupName: NewGroup(DefaultGroupName)}
	for _, g := range groups {
		next[g.Name] = g
	}
	d.Groups = next
}

// AppendMessage adds a general (non-plugin) message.
func (d *MetadataDocument) AppendMessage(m Message) {
	d.Messages = append(d.Messages, m)
}
