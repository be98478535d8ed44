package metadata

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// allowedKeys rejects unrecognised top-level/per-entry keys. yaml.v3 has no
// KnownFields equivalent to encoding/json's Decoder, so this is enforced by
// hand against the decoded yaml.Node mapping before converting to typed
// values.
var (
	allowedDocumentKeys = set("bash_tags", "globals", "groups", "plugins")
	allowedPluginKeys   = set("name", "enabled", "group", "priority", "after", "req", "inc", "msg", "tag", "dirty", "clean", "url")
	allowedGroupKeys    = set("name", "after")
	allowedMessageKeys  = set("type", "content", "condition", "subs")
	allowedFileKeys     = set("name", "display", "condition")
	allowedCleanKeys    = set("crc", "itm", "udr", "nav", "util", "info")
	allowedLocationKeys = set("link", "name")
)

func set(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func checkUnknownKeys(node *yaml.Node, allowed map[string]struct{}, context string) error {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("%s: unrecognised key %q", context, key)
		}
	}
	return nil
}

// UnmarshalYAML implements strict decoding for File: a bare scalar names the
// file with no display/condition; a mapping may set name/display/condition.
func (f *File) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Name = node.Value
		return nil
	}
	if err := checkUnknownKeys(node, allowedFileKeys, "file"); err != nil {
		return err
	}
	type raw File
	var r raw
	if err := node.Decode(&r); err != nil {
		return err
	}
	*f = File(r)
	return nil
}

// UnmarshalYAML decodes a bash-tag-style scalar: "Tag" to add, "-Tag" to
// remove, each optionally followed by a pipe-delimited condition
// ("Tag|condition"), matching the common community masterlist convention.
func (t *Tag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		name := node.Value
		condition := ""
		if idx := strings.Index(name, "|"); idx >= 0 {
			condition = name[idx+1:]
			name = name[:idx]
		}
		suggestion := TagAdd
		if strings.HasPrefix(name, "-") {
			suggestion = TagRemove
			name = name[1:]
		}
		*t = Tag{Name: name, Suggestion: suggestion, Condition: condition}
		return nil
	}
	var raw struct {
		Name      string `yaml:"name"`
		Condition string `yaml:"condition"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	name := raw.Name
	suggestion := TagAdd
	if strings.HasPrefix(name, "-") {
		suggestion = TagRemove
		name = name[1:]
	}
	*t = Tag{Name: name, Suggestion: suggestion, Condition: raw.Condition}
	return nil
}

// MarshalYAML emits the same add/remove-prefixed scalar shorthand accepted
// by UnmarshalYAML.
func (t Tag) MarshalYAML() (interface{}, error) {
	name := t.Name
	if t.Suggestion == TagRemove {
		name = "-" + name
	}
	if t.Condition != "" {
		return name + "|" + t.Condition, nil
	}
	return name, nil
}

func (m *Message) UnmarshalYAML(node *yaml.Node) error {
	if err := checkUnknownKeys(node, allowedMessageKeys, "message"); err != nil {
		return err
	}
	var raw struct {
		Type      string    `yaml:"type"`
		Content   yaml.Node `yaml:"content"`
		Condition string    `yaml:"condition"`
		Subs      []string  `yaml:"subs"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch raw.Type {
	case "", "say":
		m.Type = MessageSay
	case "warn":
		m.Type = MessageWarn
	case "error":
		m.Type = MessageError
	default:
		return fmt.Errorf("message: unrecognised type %q", raw.Type)
	}
	m.Condition = raw.Condition
	m.Subs = raw.Subs

	switch raw.Content.Kind {
	case 0:
		m.Content = nil
	case yaml.ScalarNode:
		m.Content = []MessageContent{{Language: fallbackLanguage, Text: raw.Content.Value}}
	case yaml.SequenceNode:
		var entries []struct {
			Lang string `yaml:"lang"`
			Text string `yaml:"text"`
		}
		if err := raw.Content.Decode(&entries); err != nil {
			return err
		}
		m.Content = make([]MessageContent, 0, len(entries))
		for _, e := range entries {
			lang := e.Lang
			if lang == "" {
				lang = fallbackLanguage
			}
			m.Content = append(m.Content, MessageContent{Language: lang, Text: e.Text})
		}
	default:
		return fmt.Errorf("message: unsupported content shape")
	}
	return nil
}

func (l *Location) UnmarshalYAML(node *yaml.Node) error {
	if err := checkUnknownKeys(node, allowedLocationKeys, "location"); err != nil {
		return err
	}
	var raw struct {
		Link string `yaml:"link"`
		Name string `yaml:"name"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*l = Location{URL: raw.Link, Name: raw.Name}
	return nil
}

func (l Location) MarshalYAML() (interface{}, error) {
	return struct {
		Link string `yaml:"link"`
		Name string `yaml:"name,omitempty"`
	}{Link: l.URL, Name: l.Name}, nil
}

func (c *PluginCleaningData) UnmarshalYAML(node *yaml.Node) error {
	if err := checkUnknownKeys(node, allowedCleanKeys, "cleaning data"); err != nil {
		return err
	}
	var raw struct {
		CRC  string    `yaml:"crc"`
		ITM  uint32    `yaml:"itm"`
		UDR  uint32    `yaml:"udr"`
		Nav  uint32    `yaml:"nav"`
		Util string    `yaml:"util"`
		Info []Message `yaml:"info"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	crc, err := strconv.ParseUint(strings.TrimPrefix(raw.CRC, "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("cleaning data: invalid crc %q: %w", raw.CRC, err)
	}
	*c = PluginCleaningData{
		CRC:                 uint32(crc),
		ITMCount:            raw.ITM,
		DeletedRefCount:     raw.UDR,
		DeletedNavmeshCount: raw.Nav,
		CleaningUtility:     raw.Util,
		Info:                raw.Info,
	}
	return nil
}

func (c PluginCleaningData) MarshalYAML() (interface{}, error) {
	return struct {
		CRC  string    `yaml:"crc"`
		ITM  uint32    `yaml:"itm,omitempty"`
		UDR  uint32    `yaml:"udr,omitempty"`
		Nav  uint32    `yaml:"nav,omitempty"`
		Util string    `yaml:"util,omitempty"`
		Info []Message `yaml:"info,omitempty"`
	}{
		CRC:  fmt.Sprintf("0x%X", c.CRC),
		ITM:  c.ITMCount,
		UDR:  c.DeletedRefCount,
		Nav:  c.DeletedNavmeshCount,
		Util: c.CleaningUtility,
		Info: c.Info,
	}, nil
}

func (g *Group) UnmarshalYAML(node *yaml.Node) error {
	if err := checkUnknownKeys(node, allowedGroupKeys, "group"); err != nil {
		return err
	}
	var raw struct {
		Name  string   `yaml:"name"`
		After []string `yaml:"after"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*g = NewGroup(raw.Name, raw.After...)
	return nil
}

func (g Group) MarshalYAML() (interface{}, error) {
	after := make([]string, 0, len(g.After))
	for a := range g.After {
		after = append(after, a)
	}
	sort.Strings(after)
	return struct {
		Name  string   `yaml:"name"`
		After []string `yaml:"after,omitempty"`
	}{Name: g.Name, After: after}, nil
}

// rawPluginMetadata mirrors the YAML shape the masterlist/userlist files use.
type rawPluginMetadata struct {
	Name     string                `yaml:"name"`
	Enabled  *bool                 `yaml:"enabled,omitempty"`
	Group    string                `yaml:"group,omitempty"`
	Priority *int                  `yaml:"priority,omitempty"`
	After    []File                `yaml:"after,omitempty"`
	Req      []File                `yaml:"req,omitempty"`
	Inc      []File                `yaml:"inc,omitempty"`
	Msg      []Message             `yaml:"msg,omitempty"`
	Tag      []Tag                 `yaml:"tag,omitempty"`
	Dirty    []PluginCleaningData  `yaml:"dirty,omitempty"`
	Clean    []PluginCleaningData  `yaml:"clean,omitempty"`
	URL      []Location            `yaml:"url,omitempty"`
}

// globalPriorityThreshold is the cut-off splitPriority uses to map a single
// signed integer priority value (as written in YAML) onto the (local,
// global) pair: values whose absolute
// value is at least globalPriorityThreshold are treated as global
// priorities, the rest as local, matching the original LOOT convention of
// reserving the high range of the priority scale for global effect.
const globalPriorityThreshold = 100

func splitPriority(v int) Priority {
	if v >= globalPriorityThreshold || v <= -globalPriorityThreshold {
		return Priority{Global: int16(v)}
	}
	return Priority{Local: int16(v)}
}

func joinPriority(p Priority) int {
	if p.Global != 0 {
		return int(p.Global)
	}
	return int(p.Local)
}

func (p *PluginMetadata) UnmarshalYAML(node *yaml.Node) error {
	if err := checkUnknownKeys(node, allowedPluginKeys, "plugin"); err != nil {
		return err
	}
	var raw rawPluginMetadata
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("plugin: name is required")
	}

	*p = NewPluginMetadata(raw.Name)
	if raw.Enabled != nil {
		p.Enabled = *raw.Enabled
	}
	if raw.Group != "" {
		p.Group, p.GroupExplicit = raw.Group, true
	}
	if raw.Priority != nil {
		p.Priority = splitPriority(*raw.Priority)
	}
	p.LoadAfter = fileSet(raw.After)
	p.Requirements = fileSet(raw.Req)
	p.Incompatibilities = fileSet(raw.Inc)
	p.Messages = raw.Msg
	p.Tags = tagSet(raw.Tag)
	p.DirtyInfo = cleaningSet(raw.Dirty)
	p.CleanInfo = cleaningSet(raw.Clean)
	p.Locations = locationSet(raw.URL)
	return nil
}

func fileSet(files []File) map[string]File {
	if len(files) == 0 {
		return nil
	}
	out := make(map[string]File, len(files))
	for _, f := range files {
		out[f.Key()] = f
	}
	return out
}

func tagSet(tags []Tag) map[string]Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]Tag, len(tags))
	for _, t := range tags {
		out[t.Key()] = t
	}
	return out
}

func cleaningSet(entries []PluginCleaningData) map[uint32]PluginCleaningData {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[uint32]PluginCleaningData, len(entries))
	for _, e := range entries {
		out[e.CRC] = e
	}
	return out
}

func locationSet(locs []Location) map[string]Location {
	if len(locs) == 0 {
		return nil
	}
	out := make(map[string]Location, len(locs))
	for _, l := range locs {
		out[l.URL] = l
	}
	return out
}

func (p PluginMetadata) MarshalYAML() (interface{}, error) {
	raw := rawPluginMetadata{Name: p.Name}
	if !p.Enabled {
		v := false
		raw.Enabled = &v
	}
	if p.GroupExplicit {
		raw.Group = p.Group
	}
	if !p.Priority.IsZero() {
		v := joinPriority(p.Priority)
		raw.Priority = &v
	}
	raw.After = sortedFiles(p.LoadAfter)
	raw.Req = sortedFiles(p.Requirements)
	raw.Inc = sortedFiles(p.Incompatibilities)
	raw.Msg = p.Messages
	raw.Tag = sortedTags(p.Tags)
	raw.Dirty = sortedCleaning(p.DirtyInfo)
	raw.Clean = sortedCleaning(p.CleanInfo)
	raw.URL = sortedLocations(p.Locations)
	return raw, nil
}

func sortedFiles(m map[string]File) []File {
	if len(m) == 0 {
		return nil
	}
	out := make([]File, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func sortedTags(m map[string]Tag) []Tag {
	if len(m) == 0 {
		return nil
	}
	out := make([]Tag, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func sortedCleaning(m map[uint32]PluginCleaningData) []PluginCleaningData {
	if len(m) == 0 {
		return nil
	}
	out := make([]PluginCleaningData, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CRC < out[j].CRC })
	return out
}

func sortedLocations(m map[string]Location) []Location {
	if len(m) == 0 {
		return nil
	}
	out := make([]Location, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
