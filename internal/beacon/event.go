package beacon

import "maps"

// TagKey is the event field holding the event category.
const TagKey = "tag"

// Event is one record returned by a beacon tick.
// Every record identifies its entity and the transition without
// consulting beacon state.
type Event map[string]any

// Tag returns the event category or an empty string for kinds that do not set one.
func (e Event) Tag() string {
	tag, _ := e[TagKey].(string)

	return tag
}

// Clone returns a shallow copy of the record.
func (e Event) Clone() Event {
	return maps.Clone(e)
}
