package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

func TestRoomsToleratesProseWrappedPayload(t *testing.T) {
	raw := []byte("Here is the extraction:\n```json\n{\"rooms\":[{\"id\":\"r1\",\"name\":\"Kontor\",\"type\":\"office\",\"area_m2\":\"12,5 m2\"},{\"name\":\"Gang\",\"type\":\"corridor\",\"area_m2\":-3}]}\n```")
	rooms, err := Rooms(raw)
	if err != nil {
		t.Fatalf("Rooms() error = %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].AreaM2 == nil || *rooms[0].AreaM2 != 12.5 {
		t.Fatalf("expected parsed area 12.5, got %v", rooms[0].AreaM2)
	}
	if rooms[1].AreaM2 != nil {
		t.Fatalf("negative area should normalize to nil, got %v", *rooms[1].AreaM2)
	}
	if rooms[1].ID != "room-2" {
		t.Fatalf("missing id should be synthesized, got %q", rooms[1].ID)
	}
}

func TestRoomsFailsWithoutRoomList(t *testing.T) {
	_, err := Rooms([]byte(`{"message":"no rooms here"}`))
	if !domain.IsKind(err, domain.ErrNoStructuredPayload) {
		t.Fatalf("expected ErrNoStructuredPayload, got %v", err)
	}
}

func TestPlanCompletesFrequencyAndRecomputesTotal(t *testing.T) {
	raw := []byte(`{
		"entries": [
			{"room_name":"Kontor","area_m2":10,"description":"Støvsuging","frequency":{"mandag":"x","FRE":true,"holiday":true}},
			{"room_name":"Gang","area_m2":"n/a","description":"Moppes"}
		],
		"total_area_m2": 999,
		"template_name": "Standard"
	}`)
	plan, err := Plan(raw, domain.SourceGenerator)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.TotalAreaM2 != 10 {
		t.Fatalf("total area must be recomputed, got %v", plan.TotalAreaM2)
	}
	if plan.TemplateName != "Standard" {
		t.Fatalf("unexpected template name %q", plan.TemplateName)
	}
	for _, entry := range plan.Entries {
		if len(entry.Frequency) != len(domain.Weekdays) {
			t.Fatalf("entry %d: expected %d weekday keys, got %d", entry.RowID, len(domain.Weekdays), len(entry.Frequency))
		}
	}
	if !plan.Entries[0].Frequency["MAN"] || !plan.Entries[0].Frequency["FRE"] {
		t.Fatalf("day aliases not honored: %+v", plan.Entries[0].Frequency)
	}
	if plan.Entries[0].Frequency["TIRS"] {
		t.Fatalf("unspecified day must default false")
	}
	if plan.Entries[1].AreaM2 != nil {
		t.Fatalf("unparseable area must become nil")
	}
	if plan.Entries[0].RowID != 1 || plan.Entries[1].RowID != 2 {
		t.Fatalf("row ids must be dense 1..N: %d, %d", plan.Entries[0].RowID, plan.Entries[1].RowID)
	}
}

func TestPlanIsIdempotent(t *testing.T) {
	raw := []byte(`{"entries":[{"room_name":"Kontor","area_m2":8.5,"description":"Tørk","frequency":{"MAN":true}}]}`)
	first, err := Plan(raw, domain.SourceGenerator)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	reencoded, err := json.Marshal(map[string]any{
		"entries":       first.Entries,
		"total_area_m2": first.TotalAreaM2,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := Plan(reencoded, domain.SourceGenerator)
	if err != nil {
		t.Fatalf("Plan() second pass error = %v", err)
	}
	if !reflect.DeepEqual(first.Entries, second.Entries) {
		t.Fatalf("entries changed between passes:\n%+v\n%+v", first.Entries, second.Entries)
	}
	if first.TotalAreaM2 != second.TotalAreaM2 {
		t.Fatalf("total area changed: %v vs %v", first.TotalAreaM2, second.TotalAreaM2)
	}
}

func TestPlanAcceptsBareEntryArray(t *testing.T) {
	plan, err := Plan([]byte(`[{"name":"WC","tasks":"Desinfisering"}]`), domain.SourceConverter)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Entries) != 1 || plan.Entries[0].RoomName != "WC" {
		t.Fatalf("unexpected entries: %+v", plan.Entries)
	}
	if plan.Entries[0].Description != "Desinfisering" {
		t.Fatalf("tasks alias not mapped: %+v", plan.Entries[0])
	}
}

func TestPlanFailsWithoutEntryList(t *testing.T) {
	_, err := Plan([]byte("Beklager, jeg kan ikke lese dokumentet."), domain.SourceGenerator)
	if !domain.IsKind(err, domain.ErrNoStructuredPayload) {
		t.Fatalf("expected ErrNoStructuredPayload, got %v", err)
	}
}

func TestTemplateSchema(t *testing.T) {
	schema, err := Template([]byte(`{"name":"Kontorbygg","sections":["Etasje 1"],"columns":["Rom","Frekvens"]}`))
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}
	if schema.Name != "Kontorbygg" || len(schema.Columns) != 2 {
		t.Fatalf("unexpected schema: %+v", schema)
	}
}
