package metadata

// Merge layers incoming on top of base and returns the combined
// PluginMetadata: scalar fields take whichever side is non-default
// (incoming wins a tie), set fields are unions keyed by identity, messages
// concatenate, explicit group beats default group, and the (Local, Global)
// priority pair is taken whole from whichever side has the larger-magnitude
// component, incoming winning ties.
func Merge(base, incoming PluginMetadata) PluginMetadata {
	out := PluginMetadata{Name: base.Name}

	out.Enabled = mergeBool(base.Enabled, incoming.Enabled, true)

	switch {
	case incoming.GroupExplicit:
		out.Group, out.GroupExplicit = incoming.Group, true
	case base.GroupExplicit:
		out.Group, out.GroupExplicit = base.Group, true
	default:
		out.Group, out.GroupExplicit = DefaultGroupName, false
	}

	out.Priority = mergePriority(base.Priority, incoming.Priority)

	out.LoadAfter = mergeFileSets(base.LoadAfter, incoming.LoadAfter)
	out.Requirements = mergeFileSets(base.Requirements, incoming.Requirements)
	out.Incompatibilities = mergeFileSets(base.Incompatibilities, incoming.Incompatibilities)
	out.Tags = mergeTagSets(base.Tags, incoming.Tags)
	out.DirtyInfo = mergeCleaningSets(base.DirtyInfo, incoming.DirtyInfo)
	out.CleanInfo = mergeCleaningSets(base.CleanInfo, incoming.CleanInfo)
	out.Locations = mergeLocationSets(base.Locations, incoming.Locations)

	out.Messages = make([]Message, 0, len(base.Messages)+len(incoming.Messages))
	out.Messages = append(out.Messages, base.Messages...)
	out.Messages = append(out.Messages, incoming.Messages...)

	return out
}

func mergeBool(base, incoming, defaultValue bool) bool {
	if incoming != defaultValue {
		return incoming
	}
	if base != defaultValue {
		return base
	}
	return defaultValue
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

// priorityMagnitude is the value used to compare two Priority pairs for
// mergePriority: whichever component has the larger absolute value.
func priorityMagnitude(p Priority) int16 {
	if l, g := abs16(p.Local), abs16(p.Global); l > g {
		return l
	} else {
		return g
	}
}

// mergePriority picks base's or incoming's (Local, Global) pair as a whole,
// by whichever has the larger-magnitude component, incoming winning ties.
// The pair is never split across sides: a plugin either keeps its existing
// priority or takes on the other entry's in full.
func mergePriority(base, incoming Priority) Priority {
	if priorityMagnitude(incoming) >= priorityMagnitude(base) {
		return incoming
	}
	return base
}

func mergeFileSets(base, incoming map[string]File) map[string]File {
	if len(base) == 0 && len(incoming) == 0 {
		return nil
	}
	out := make(map[string]File, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

func mergeTagSets(base, incoming map[string]Tag) map[string]Tag {
	if len(base) == 0 && len(incoming) == 0 {
		return nil
	}
	out := make(map[string]Tag, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

func mergeCleaningSets(base, incoming map[uint32]PluginCleaningData) map[uint32]PluginCleaningData {
	if len(base) == 0 && len(incoming) == 0 {
		return nil
	}
	out := make(map[uint32]PluginCleaningData, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

func mergeLocationSets(base, incoming map[string]Location) map[string]Location {
	if len(base) == 0 && len(incoming) == 0 {
		return nil
	}
	out := make(map[string]Location, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}
