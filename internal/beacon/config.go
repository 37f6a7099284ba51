package beacon

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Item is a single-key mapping of the configuration list.
type Item struct {
	// Key is the option name.
	Key string
	// Value is the option value as decoded from YAML or JSON.
	Value any
}

// ConfigList is the ordered configuration of one beacon instance.
// It is the in-memory form of a YAML list of single-key mappings.
type ConfigList []Item

var (
	// ErrNotList is returned when a configuration value is not a sequence.
	ErrNotList = errors.New("configuration must be a list")
	// ErrNotSingleKeyMapping is returned when a list element is not a mapping with exactly one key.
	ErrNotSingleKeyMapping = errors.New("configuration items must be single-key mappings")
)

// ParseConfigList converts a decoded value into a ConfigList.
func ParseConfigList(raw any) (ConfigList, error) {
	switch v := raw.(type) {
	case ConfigList:
		return v, nil
	case []Item:
		return ConfigList(v), nil
	case []map[string]any:
		items := make([]any, 0, len(v))
		for _, m := range v {
			items = append(items, m)
		}

		return ParseConfigList(items)
	case []any:
		result := make(ConfigList, 0, len(v))

		for i, element := range v {
			mapping, ok := element.(map[string]any)
			if !ok || len(mapping) != 1 {
				return nil, fmt.Errorf("item %d: %w", i, ErrNotSingleKeyMapping)
			}

			for key, value := range mapping {
				result = append(result, Item{Key: key, Value: value})
			}
		}

		return result, nil
	default:
		return nil, ErrNotList
	}
}

// Merge folds the list into one mapping, later keys overwrite earlier ones.
func (c ConfigList) Merge() map[string]any {
	merged := make(map[string]any, len(c))
	for _, item := range c {
		merged[item.Key] = item.Value
	}

	return merged
}

// Lookup returns the merged value of key.
func (c ConfigList) Lookup(key string) (any, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Key == key {
			return c[i].Value, true
		}
	}

	return nil, false
}

// Without returns a copy of the list without the given keys.
func (c ConfigList) Without(keys ...string) ConfigList {
	result := make(ConfigList, 0, len(c))

	for _, item := range c {
		if slices.Contains(keys, item.Key) {
			continue
		}

		result = append(result, item)
	}

	return result
}

// Equal reports whether both lists have the same items in the same order.
func (c ConfigList) Equal(other ConfigList) bool {
	if len(c) != len(other) {
		return false
	}

	for i := range c {
		if c[i].Key != other[i].Key || !reflect.DeepEqual(c[i].Value, other[i].Value) {
			return false
		}
	}

	return true
}

// ToStringList converts a decoded sequence into strings.
// Non-string members make the conversion fail.
func ToStringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return slices.Clone(list), true
	case []any:
		result := make([]string, 0, len(list))

		for _, element := range list {
			s, ok := element.(string)
			if !ok {
				return nil, false
			}

			result = append(result, s)
		}

		return result, true
	default:
		return nil, false
	}
}

// ToMapping converts a decoded mapping.
func ToMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		result := make(map[string]any, len(m))
		for key, value := range m {
			result[key] = value
		}

		return result, true
	default:
		return nil, false
	}
}

// ToInt converts decoded numbers and numeric strings to int64.
func ToInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}

		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

// ToBool converts a decoded boolean. Only real booleans are accepted.
func ToBool(v any) (bool, bool) {
	b, ok := v.(bool)

	return b, ok
}
