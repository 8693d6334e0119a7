package mapping

import (
	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/transform"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// ExportEntry describes one mapped field for downstream consumers.
type ExportEntry struct {
	SourceField     string           `json:"sourceField"`
	TargetField     string           `json:"targetField"`
	Required        bool             `json:"required"`
	TransformConfig transform.Config `json:"transformConfig"`
}

// Export lists the mapped fields in catalog order. Fields mapped to an
// index outside columns are left out. TransformConfig is nil when the field
// has no stored configuration.
func (s *State) Export(catalog *schema.Catalog, columns []types.SourceColumn) []ExportEntry {
	byIndex := make(map[int]string, len(columns))
	for _, col := range columns {
		byIndex[col.Index] = col.Name
	}

	entries := []ExportEntry{}
	for _, f := range catalog.Fields() {
		idx, ok := s.targets[f.ID]
		if !ok {
			continue
		}
		name, ok := byIndex[idx]
		if !ok {
			continue
		}
		entry := ExportEntry{
			SourceField: name,
			TargetField: f.Key(),
			Required:    f.Required,
		}
		if cfg, ok := s.configs.Get(f.ID); ok {
			entry.TransformConfig = cfg
		}
		entries = append(entries, entry)
	}
	return entries
}
