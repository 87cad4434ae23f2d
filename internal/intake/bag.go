package intake

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the representations a bag value can take.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindList
)

// Value is a tagged form value: a scalar string, a scalar number, or an
// ordered list of strings (multi-select fields).
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	List []string
}

// String returns a scalar string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number returns a scalar numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// List returns an ordered multi-select value.
func List(items ...string) Value { return Value{Kind: KindList, List: items} }

// Blank reports whether the value counts as empty for required-field
// validation: a whitespace-only string or an empty list. Numbers are never
// blank.
func (v Value) Blank() bool {
	switch v.Kind {
	case KindString:
		return strings.TrimSpace(v.Str) == ""
	case KindList:
		return len(v.List) == 0
	default:
		return false
	}
}

// Text renders the value as a single string, joining list values with "; ".
func (v Value) Text() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindList:
		return strings.Join(v.List, "; ")
	default:
		return v.Str
	}
}

// Int parses the value as an integer, accepting both numeric and string
// representations.
func (v Value) Int() (int, error) {
	switch v.Kind {
	case KindNumber:
		return int(v.Num), nil
	case KindString:
		return strconv.Atoi(strings.TrimSpace(v.Str))
	default:
		return 0, fmt.Errorf("value is a list, not a number")
	}
}

// MarshalJSON encodes the value in its natural JSON shape: string, number, or
// array of strings. This matches the persisted form_data layout.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindList:
		if v.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON decodes a string, number, or string array into a tagged value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = String(t)
	case float64:
		*v = Number(t)
	case []interface{}:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return fmt.Errorf("list value contains non-string element %v", it)
			}
			items = append(items, s)
		}
		*v = List(items...)
	case nil:
		*v = String("")
	default:
		return fmt.Errorf("unsupported value type %T", raw)
	}
	return nil
}

// Bag is the complete set of field-id to value entries for one in-progress or
// completed form. Entries are never removed once set; clearing a field means
// setting it to an empty string or list.
type Bag map[string]Value

// Get returns the value for id and whether it has been set.
func (b Bag) Get(id string) (Value, bool) {
	v, ok := b[id]
	return v, ok
}

// GetText returns the value for id rendered as a string, or "" when unset.
func (b Bag) GetText(id string) string {
	v, ok := b[id]
	if !ok {
		return ""
	}
	return v.Text()
}

// Set stores a value, replacing any previous entry.
func (b Bag) Set(id string, v Value) {
	b[id] = v
}

// Clone returns a deep copy of the bag.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		if v.Kind == KindList {
			items := make([]string, len(v.List))
			copy(items, v.List)
			v.List = items
		}
		out[k] = v
	}
	return out
}

// Monitoring grid dimensions: 14 days, three readings per day.
const (
	GridDays = 14
)

// Slot identifies a time-of-day column in the monitoring grid.
type Slot string

const (
	SlotMorning   Slot = "morning"
	SlotAfternoon Slot = "afternoon"
	SlotNight     Slot = "night"
)

// Slots lists the grid columns in their fixed order.
var Slots = []Slot{SlotMorning, SlotAfternoon, SlotNight}

// GlucoseKey returns the synthetic bag key for one grid cell. Keys are
// generated rather than hand-authored so the day/slot naming cannot drift.
func GlucoseKey(day int, slot Slot) string {
	return fmt.Sprintf("glucose_day%d_%s", day, slot)
}

// GridKeys returns all 42 synthetic glucose keys in day-major, slot-minor
// order.
func GridKeys() []string {
	keys := make([]string, 0, GridDays*len(Slots))
	for day := 1; day <= GridDays; day++ {
		for _, slot := range Slots {
			keys = append(keys, GlucoseKey(day, slot))
		}
	}
	return keys
}

// GridComplete reports whether every glucose cell holds a non-blank string.
func GridComplete(bag Bag) bool {
	return GridFilled(bag) == GridDays*len(Slots)
}

// GridFilled counts the non-blank glucose cells in the bag.
func GridFilled(bag Bag) int {
	filled := 0
	for _, key := range GridKeys() {
		if v, ok := bag[key]; ok && !v.Blank() {
			filled++
		}
	}
	return filled
}
