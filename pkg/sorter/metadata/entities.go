// Package metadata holds the value types curator and user metadata is built
// from (Priority, File, Tag, Message, PluginCleaningData, Location, Group,
// PluginMetadata) and the document that aggregates them (MetadataDocument),
// plus that document's YAML load/save.
package metadata

import (
	"strings"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// Fold returns the Unicode simple case-fold of s, used as the identity key
// for names that compare case-insensitively (file names, plugin names, tag
// names). It is a thin wrapper so every identity comparison in this module
// goes through one place.
func Fold(s string) string {
	return foldCaser.String(s)
}

// regexMetaChars are the characters used to distinguish a regex
// plugin-metadata entry from an exact one.
const regexMetaChars = `:\*?|`

// IsRegexName reports whether name should be interpreted as an ECMAScript
// regular expression rather than a literal plugin filename.
func IsRegexName(name string) bool {
	return strings.ContainsAny(name, regexMetaChars)
}

// Priority is a signed (local, global) pair. Ordering is lexicographic by
// (global, local).
type Priority struct {
	Local  int16
	Global int16
}

// Compare returns -1, 0, or 1 as p orders before, equal to, or after other.
func (p Priority) Compare(other Priority) int {
	if p.Global != other.Global {
		if p.Global < other.Global {
			return -1
		}
		return 1
	}
	if p.Local != other.Local {
		if p.Local < other.Local {
			return -1
		}
		return 1
	}
	return 0
}

// IsZero reports whether both components are at their default of zero.
func (p Priority) IsZero() bool {
	return p.Local == 0 && p.Global == 0
}

// File identifies a plugin or archive file that a piece of metadata
// depends on, displays, or gates on a condition. Identity is Name, folded.
type File struct {
	Name      string `yaml:"name"`
	Display   string `yaml:"display,omitempty"`
	Condition string `yaml:"condition,omitempty"`
}

// Key returns the case-folded identity of the file.
func (f File) Key() string { return Fold(f.Name) }

// TagSuggestion is whether a Tag entry adds or removes the named bash tag.
type TagSuggestion int

const (
	TagAdd TagSuggestion = iota
	TagRemove
)

// Tag is a suggestion to add or remove a known bash tag, optionally gated
// by a condition. Identity is (Name, Suggestion).
type Tag struct {
	Name       string
	Suggestion TagSuggestion
	Condition  string
}

// Key returns the tag's identity key.
func (t Tag) Key() string {
	if t.Suggestion == TagRemove {
		return "-" + Fold(t.Name)
	}
	return Fold(t.Name)
}

// MessageType is the severity of a Message.
type MessageType int

const (
	MessageSay MessageType = iota
	MessageWarn
	MessageError
)

// MessageContent is one localisation of a Message's text.
type MessageContent struct {
	Language string
	Text     string
}

// fallbackLanguage is used when no content matches the caller's preference.
const fallbackLanguage = "en"

// Message is a localisable, optionally conditional note attached to a
// plugin or surfaced as a general message.
type Message struct {
	Type      MessageType
	Content   []MessageContent
	Condition string
	Subs      []string
}

// Localised returns the message text for the preferred language, falling
// back to "en", then to the first available content, then "".
func (m Message) Localised(preferred string) string {
	var fallback, first string
	for i, c := range m.Content {
		if i == 0 {
			first = c.Text
		}
		if strings.EqualFold(c.Language, preferred) {
			return m.applySubs(c.Text)
		}
		if strings.EqualFold(c.Language, fallbackLanguage) {
			fallback = c.Text
		}
	}
	if fallback != "" {
		return m.applySubs(fallback)
	}
	return m.applySubs(first)
}

// applySubs fills %1%, %2%,... placeholders from m.Subs.
func (m Message) applySubs(text string) string {
	for i, sub := range m.Subs {
		placeholder := "%" + itoa(i+1) + "%"
		text = strings.ReplaceAll(text, placeholder, sub)
	}
	return text
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// PluginCleaningData records the result of a cleaning utility run against a
// plugin with a specific CRC. Identity is CRC.
type PluginCleaningData struct {
	CRC                 uint32
	ITMCount            uint32
	DeletedRefCount     uint32
	DeletedNavmeshCount uint32
	CleaningUtility     string
	Info                []Message
}

// Location is a download or information URL for a plugin. Identity is URL.
type Location struct {
	URL  string
	Name string
}

// Group is a named ordering bucket with a declared "after" set. Identity is
// Name. The pseudo-group "default" always exists.
type Group struct {
	Name  string
	After map[string]struct{}
}

// DefaultGroupName is the pseudo-group every plugin belongs to absent an
// explicit assignment.
const DefaultGroupName = "default"

// NewGroup returns a Group with an initialised After set.
func NewGroup(name string, after ...string) Group {
	g := Group{Name: name, After: make(map[string]struct{}, len(after))}
	for _, a := range after {
		g.After[a] = struct{}{}
	}
	return g
}

// PluginMetadata is curator- or user-authored metadata for one plugin, or,
// when Name is a regex (see IsRegexName), for every plugin the pattern
// matches. Identity is Name (case-folded for exact entries).
type PluginMetadata struct {
	Name              string
	Enabled           bool
	GroupExplicit     bool
	Group             string
	Priority          Priority
	LoadAfter         map[string]File
	Requirements      map[string]File
	Incompatibilities map[string]File
	Messages          []Message
	Tags              map[string]Tag
	DirtyInfo         map[uint32]PluginCleaningData
	CleanInfo         map[uint32]PluginCleaningData
	Locations         map[string]Location
}

// NewPluginMetadata returns a PluginMetadata with every field at its
// default for name.
func NewPluginMetadata(name string) PluginMetadata {
	return PluginMetadata{
		Name:    name,
		Enabled: true,
		Group:   DefaultGroupName,
	}
}

// IsRegex reports whether this entry's Name is an ECMAScript regex rather
// than a literal plugin filename.
func (p PluginMetadata) IsRegex() bool { return IsRegexName(p.Name) }

// IsNameOnly reports whether every field but Name carries its default
// value. Such entries must be pruned before serialization.
func (p PluginMetadata) IsNameOnly() bool {
	return p.Enabled &&
		!p.GroupExplicit &&
		p.Priority.IsZero() &&
		len(p.LoadAfter) == 0 &&
		len(p.Requirements) == 0 &&
		len(p.Incompatibilities) == 0 &&
		len(p.Messages) == 0 &&
		len(p.Tags) == 0 &&
		len(p.DirtyInfo) == 0 &&
		len(p.CleanInfo) == 0 &&
		len(p.Locations) == 0
}

// key returns the identity key used inside a MetadataDocument's exact-entry
// map: the case-folded name.
func (p PluginMetadata) key() string { return Fold(p.Name) }
