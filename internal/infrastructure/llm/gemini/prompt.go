package gemini

import (
	"fmt"
	"strings"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

func buildFloorPlanInstruction(basePrompt string, opts domain.FloorPlanOptions) string {
	var b strings.Builder
	if basePrompt != "" {
		b.WriteString(basePrompt)
		b.WriteString("\n")
	}
	b.WriteString("Du får en plantegning som bilde eller PDF. Ekstraher et strukturert JSON-objekt med nøkkelen 'rooms'. ")
	b.WriteString("Hver room skal ha feltene id, name, type, floor, area_m2 (kan være null) og notes (kan være tomt). ")
	b.WriteString("Svar kun med JSON.\n")

	fmt.Fprintf(&b, "has_room_names=%t, has_area=%t.\n", opts.HasRoomNames, opts.HasArea)
	if !opts.HasArea {
		unit := opts.ReferenceUnit
		if unit == "" {
			unit = "m"
		}
		switch {
		case opts.ReferenceLabel != "" && opts.ReferenceWidth != nil:
			fmt.Fprintf(&b, "Bruk referansemål: %s med bredde %g%s for å estimere m².\n", opts.ReferenceLabel, *opts.ReferenceWidth, unit)
		case opts.ReferenceWidth != nil:
			fmt.Fprintf(&b, "Bruk referansemål med bredde %g%s for å estimere m².\n", *opts.ReferenceWidth, unit)
		case opts.ReferenceLabel != "":
			fmt.Fprintf(&b, "Bruk referansemål: %s for å estimere m².\n", opts.ReferenceLabel)
		default:
			b.WriteString("Ingen referansemål er tilgjengelig; sett area_m2 til null der areal ikke kan utledes.\n")
		}
	}
	return b.String()
}

func buildTemplateInstruction(basePrompt string) string {
	var b strings.Builder
	if basePrompt != "" {
		b.WriteString(basePrompt)
		b.WriteString("\n")
	}
	b.WriteString("Du får en eksempel-renholdsplan. Returner et JSON-objekt med nøklene name, sections, categories og columns ")
	b.WriteString("som beskriver malens struktur. Svar kun med JSON.")
	return b.String()
}

func buildGenerateInstruction(basePrompt, planCategory string) string {
	var b strings.Builder
	if basePrompt != "" {
		b.WriteString(basePrompt)
		b.WriteString("\n")
	}
	b.WriteString("Du får en liste med rom i JSON-format. Returner et JSON-objekt med nøklene 'entries', ")
	b.WriteString("'total_area_m2' og 'template_name'. ")
	b.WriteString("Hver entry skal inneholde room_name, area_m2, floor, description, frequency (map med MAN..SØN) ")
	b.WriteString("og optional notes. Svar kun som JSON.")
	if planCategory != "" {
		fmt.Fprintf(&b, "\nPlanen gjelder bygningstypen %s; tilpass frekvenser og beskrivelser deretter.", planCategory)
	}
	return b.String()
}

func buildConvertInstruction(basePrompt string) string {
	var b strings.Builder
	if basePrompt != "" {
		b.WriteString(basePrompt)
		b.WriteString("\n")
	}
	b.WriteString("Normaliser teksten til Cleansync-standard og returner JSON med samme format som plan-generering ")
	b.WriteString("(entries/total_area_m2/template_name).")
	return b.String()
}
