package matcher

import (
	"strings"

	"golang.org/x/text/cases"
)

// builtinAliases is the shared alias table for canonical incident fields.
// Keys are normalized field names (see aliasKey); values are alternate
// source column names in preference order. Interactive mapping and bulk
// CAD import both match through this one table.
var builtinAliases = map[string][]string{
	// Location
	"latitude":  {"lat", "gps_lat", "gps_latitude", "y_coord", "latitude_dd"},
	"longitude": {"lon", "lng", "long", "gps_lon", "gps_long", "gps_longitude", "x_coord", "longitude_dd"},
	"address":   {"incident_address", "street_address", "addr", "location", "street"},
	"city":      {"municipality", "town", "incident_city"},
	"state":     {"st", "incident_state"},
	"zip":       {"zipcode", "zip_code", "postal_code", "postal"},
	"zipcode":   {"zip", "zip_code", "postal_code", "postal"},

	// Incident
	"incidentnumber": {"incident_no", "inc_num", "incident_id", "incident_num", "event_number", "cad_number", "call_number"},
	"incidenttype":   {"call_type", "nature", "nature_code", "event_type", "problem", "incident_code"},
	"unit":           {"units", "unit_id", "unit_number", "apparatus", "responding_unit"},
	"priority":       {"pri", "priority_level", "call_priority"},
	"station":        {"station_id", "stn", "first_due"},

	// Timestamps
	"callreceived":     {"call_received_time", "received", "time_received", "call_time", "psap_time"},
	"callreceivedtime": {"call_received", "received", "time_received", "call_time", "psap_time"},
	"dispatchtime":     {"dispatched", "time_dispatched", "dispatch", "dispatch_date"},
	"enroutetime":      {"enroute", "en_route", "time_enroute", "responding"},
	"arrivaltime":      {"arrived", "on_scene", "time_arrived", "arrival", "onscene_time"},
	"clearedtime":      {"cleared", "time_cleared", "in_service", "available"},

	// NFIRS
	"fdid":           {"fd_id", "department_id", "fire_department_id"},
	"exposurenumber": {"exposure", "exp_no"},
}

// aliasKey normalizes a field name for alias table lookups:
// case-folded with spaces, underscores, hyphens and dots removed.
func aliasKey(name string) string {
	var b strings.Builder
	for _, r := range caseFold(name) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fold normalizes a name for comparison: case-folded, separators
// (underscore, hyphen, dot, whitespace runs) collapsed to single spaces.
func fold(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, caseFold(name))
	return strings.Join(strings.Fields(mapped), " ")
}

// caseFold applies Unicode case folding. A Caser keeps state, so each call
// gets its own.
func caseFold(s string) string {
	return cases.Fold().String(s)
}
