// Package normalize converts raw, loosely structured reasoning-engine output
// into the canonical plan shapes. Unrecoverable fields are dropped or
// defaulted; the only hard failure is a payload with no identifiable
// room or entry list at all.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

// dayAliases maps lowercased day spellings onto the canonical weekday keys.
var dayAliases = map[string]string{
	"man": "MAN", "mandag": "MAN", "mon": "MAN", "monday": "MAN",
	"tirs": "TIRS", "tir": "TIRS", "tirsdag": "TIRS", "tue": "TIRS", "tuesday": "TIRS",
	"ons": "ONS", "onsdag": "ONS", "wed": "ONS", "wednesday": "ONS",
	"tors": "TORS", "tor": "TORS", "torsdag": "TORS", "thu": "TORS", "thursday": "TORS",
	"fre": "FRE", "fredag": "FRE", "fri": "FRE", "friday": "FRE",
	"lør": "LØR", "lor": "LØR", "lørdag": "LØR", "sat": "LØR", "saturday": "LØR",
	"søn": "SØN", "son": "SØN", "søndag": "SØN", "sun": "SØN", "sunday": "SØN",
}

// Rooms extracts the room list from a raw analysis payload. Accepts either
// {"rooms": [...]} or a bare array.
func Rooms(raw []byte) ([]domain.Room, error) {
	list, err := objectList(raw, "rooms")
	if err != nil {
		return nil, domain.WrapError(domain.ErrNoStructuredPayload, "normalize rooms", err)
	}

	rooms := make([]domain.Room, 0, len(list))
	for i, obj := range list {
		room := domain.Room{
			ID:     stringField(obj, "id", "room_id"),
			Name:   stringField(obj, "name", "room_name"),
			Type:   stringField(obj, "type", "category"),
			Floor:  stringField(obj, "floor", "building", "level"),
			AreaM2: areaField(obj, "area_m2", "area", "size_m2"),
			Notes:  stringField(obj, "notes", "comment"),
		}
		if room.ID == "" {
			room.ID = "room-" + strconv.Itoa(i+1)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// Template extracts a template schema from a raw template-analysis payload.
func Template(raw []byte) (domain.TemplateSchema, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(extractJSON(raw), &obj); err != nil {
		return domain.TemplateSchema{}, domain.WrapError(domain.ErrNoStructuredPayload, "normalize template", err)
	}
	return domain.TemplateSchema{
		Name:       stringField(obj, "name", "template_name"),
		Sections:   stringListField(obj, "sections"),
		Categories: stringListField(obj, "categories"),
		Columns:    stringListField(obj, "columns"),
	}, nil
}

// Plan maps a raw plan payload onto the canonical plan. Entry ids are
// assigned as a dense 1..N sequence in provider order, frequency maps are
// completed to all seven weekdays, and the total area is recomputed from the
// entries rather than trusted from the payload.
func Plan(raw []byte, source domain.PlanSource) (domain.Plan, error) {
	list, err := objectList(raw, "entries")
	if err != nil {
		return domain.Plan{}, domain.WrapError(domain.ErrNoStructuredPayload, "normalize plan", err)
	}

	var templateName string
	var top map[string]json.RawMessage
	if json.Unmarshal(extractJSON(raw), &top) == nil {
		templateName = stringField(top, "template_name", "template")
	}

	entries := make([]domain.PlanEntry, 0, len(list))
	for i, obj := range list {
		entries = append(entries, domain.PlanEntry{
			RowID:       i + 1,
			RoomName:    stringField(obj, "room_name", "name", "room"),
			AreaM2:      areaField(obj, "area_m2", "area"),
			Floor:       stringField(obj, "floor", "building", "level"),
			Description: stringField(obj, "description", "tasks", "cleaning_tasks"),
			Frequency:   frequencyField(obj, "frequency", "days"),
			Notes:       stringField(obj, "notes", "comment"),
		})
	}

	plan := domain.Plan{
		Entries:      entries,
		TemplateName: templateName,
		Source:       source,
	}
	plan.TotalAreaM2 = plan.TotalArea()
	return plan, nil
}

// objectList finds the first list of objects in the payload: either under the
// given key, or the payload itself when it is a bare array.
func objectList(raw []byte, key string) ([]map[string]json.RawMessage, error) {
	payload := extractJSON(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err == nil {
		inner, ok := top[key]
		if !ok {
			return nil, errors.New("payload has no " + key + " list")
		}
		return decodeObjectList(inner, key)
	}
	return decodeObjectList(payload, key)
}

func decodeObjectList(raw json.RawMessage, key string) ([]map[string]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.New(key + " is not a list")
	}
	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			// Non-object entries carry nothing usable.
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

// extractJSON locates the outermost JSON object or array in free text, which
// tolerates models wrapping their answer in prose or code fences.
func extractJSON(raw []byte) []byte {
	text := strings.TrimSpace(string(raw))
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if arrStart := strings.Index(text, "["); arrStart < 0 || arrStart > start {
				return []byte(text[start : end+1])
			}
		}
	}
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			return []byte(text[start : end+1])
		}
	}
	return []byte(text)
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func stringField(obj map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok || isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return ""
}

func stringListField(obj map[string]json.RawMessage, key string) []string {
	raw, ok := obj[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	out := list[:0]
	for _, s := range list {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// areaField coerces the area value to a non-negative float. Strings are
// parsed; negative, unparseable or absent values yield nil.
func areaField(obj map[string]json.RawMessage, keys ...string) *float64 {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok || isNull(raw) {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			if n < 0 {
				return nil
			}
			return &n
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
			s = strings.TrimSuffix(s, "m2")
			s = strings.TrimSuffix(s, "m²")
			s = strings.TrimSpace(s)
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil || parsed < 0 {
				return nil
			}
			return &parsed
		}
		return nil
	}
	return nil
}

// frequencyField builds a complete weekday map. Missing days default to
// false; unknown day keys are dropped; truthy markers ("x", "1", true, "yes")
// count as scheduled.
func frequencyField(obj map[string]json.RawMessage, keys ...string) map[string]bool {
	freq := make(map[string]bool, len(domain.Weekdays))
	for _, day := range domain.Weekdays {
		freq[day] = false
	}

	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var days map[string]json.RawMessage
		if err := json.Unmarshal(raw, &days); err != nil {
			continue
		}
		for name, value := range days {
			canonical, ok := dayAliases[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				continue
			}
			freq[canonical] = truthy(value)
		}
		break
	}
	return freq
}

func truthy(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "x", "1", "true", "yes", "ja", "on":
			return true
		}
	}
	return false
}
