package transform

import (
	"strings"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// FallbackRegistry maps a canonical field key (a field name or path) to raw
// column names that carry the field in legacy exports, in preference order.
//
// After the mapped transforms of a record, every catalog field listed here
// whose output is still empty receives the first non-empty raw value found
// under one of its columns, unchanged. A mapped value is never overwritten.
type FallbackRegistry map[string][]string

// DefaultFallbacks returns the built-in registry for common CAD exports.
func DefaultFallbacks() FallbackRegistry {
	return FallbackRegistry{
		"Latitude":           {"GPS_Lat", "GPS_Latitude", "Lat", "LAT", "latitude"},
		"Longitude":          {"GPS_Lon", "GPS_Long", "GPS_Longitude", "Lon", "Lng", "LON", "longitude"},
		"Unit":               {"Units", "Unit_ID", "UnitID", "Apparatus"},
		"Address":            {"Incident_Address", "Street_Address", "Location", "Addr"},
		"Incident Number":    {"Incident_No", "IncidentNumber", "Inc_Num", "CAD_Number", "Event_Number"},
		"Incident Type":      {"Call_Type", "Nature", "Nature_Code", "Event_Type"},
		"Call Received Time": {"Call_Received", "Time_Received", "Received", "PSAP_Time"},
		"Dispatch Time":      {"Dispatched", "Time_Dispatched", "Dispatch"},
		"Arrival Time":       {"Arrived", "On_Scene", "Time_Arrived", "Arrival"},
	}
}

// Merge returns a registry with extra applied on top of r. A key present in
// extra replaces the columns r has for it.
func (r FallbackRegistry) Merge(extra map[string][]string) FallbackRegistry {
	out := make(FallbackRegistry, len(r)+len(extra))
	for key, cols := range r {
		out[key] = append([]string(nil), cols...)
	}
	for key, cols := range extra {
		for existing := range out {
			if strings.EqualFold(existing, key) {
				delete(out, existing)
			}
		}
		out[key] = append([]string(nil), cols...)
	}
	return out
}

// fallbackRule is a registry entry resolved against a catalog and a set of
// source columns.
type fallbackRule struct {
	key     string
	columns []string
}

// resolve picks the registry entries that apply to catalog fields and maps
// their column names to the record keys actually present. Column names are
// compared case-insensitively.
func (r FallbackRegistry) resolve(catalog *schema.Catalog, columns []types.SourceColumn) []fallbackRule {
	if len(r) == 0 {
		return nil
	}
	lookup := make(map[string][]string, len(r))
	for key, cols := range r {
		k := strings.ToLower(key)
		lookup[k] = append(lookup[k], cols...)
	}
	present := make(map[string]string, len(columns))
	for _, col := range columns {
		lower := strings.ToLower(col.Name)
		if _, dup := present[lower]; !dup {
			present[lower] = col.Name
		}
	}

	var rules []fallbackRule
	for _, field := range catalog.Fields() {
		cols, ok := lookup[strings.ToLower(field.Name)]
		if !ok && field.Path != "" {
			cols, ok = lookup[strings.ToLower(field.Path)]
		}
		if !ok {
			continue
		}
		rule := fallbackRule{key: field.Key()}
		for _, c := range cols {
			if name, ok := present[strings.ToLower(c)]; ok {
				rule.columns = append(rule.columns, name)
			}
		}
		if len(rule.columns) > 0 {
			rules = append(rules, rule)
		}
	}
	return rules
}

// applyFallbacks fills empty outputs from the resolved rules.
func applyFallbacks(rules []fallbackRule, record types.Record, out types.TransformedRecord) {
	for _, rule := range rules {
		if v, ok := out[rule.key]; ok && !types.IsEmpty(v) {
			continue
		}
		for _, col := range rule.columns {
			if raw, ok := record[col]; ok && !types.IsEmpty(raw) {
				out[rule.key] = raw
				break
			}
		}
	}
}
