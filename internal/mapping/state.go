// =============================================================================
// Incident Field Mapper - Mapping State
// =============================================================================
//
// The mapping state records which source column feeds each target field.
// It is a partial function from target field ID to source column index and
// is kept one-to-one: a source column feeds at most one target field.
//
// COLUMN USAGE:
//   Set rejects a column that is already bound to another field with
//   ErrSourceInUse. Callers that want to move a column clear the old field
//   first. UsedSourceIndices lists the bound columns for display.
//
// TRANSFORM CONFIGURATION:
//   The state shares a transform.Configs store with the executor. Clearing a
//   field's mapping also discards its transform configuration.
//
// =============================================================================

package mapping

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/transform"
)

var (
	// ErrSourceInUse is returned when a source column is already mapped to
	// a different target field.
	ErrSourceInUse = errors.New("source column already mapped")

	// ErrInvalidIndex is returned for negative source indices.
	ErrInvalidIndex = errors.New("invalid source column index")

	// ErrUnknownField is returned when a target ID is not in the catalog.
	ErrUnknownField = errors.New("unknown target field")
)

// State is the user-editable mapping. It is owned by a single caller and is
// not safe for concurrent mutation.
type State struct {
	targets map[string]int // target ID -> source index
	sources map[int]string // source index -> target ID
	configs *transform.Configs
}

// New creates an empty mapping sharing configs. A nil store gets a fresh one.
func New(configs *transform.Configs) *State {
	if configs == nil {
		configs = transform.NewConfigs()
	}
	return &State{
		targets: make(map[string]int),
		sources: make(map[int]string),
		configs: configs,
	}
}

// Configs returns the transform configuration store.
func (s *State) Configs() *transform.Configs {
	return s.configs
}

// Set binds targetID to the source column at sourceIndex. Rebinding a field
// to another column releases its previous column.
func (s *State) Set(targetID string, sourceIndex int) error {
	if targetID == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownField)
	}
	if sourceIndex < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, sourceIndex)
	}
	if owner, ok := s.sources[sourceIndex]; ok && owner != targetID {
		return fmt.Errorf("%w: column %d is mapped to %s", ErrSourceInUse, sourceIndex, owner)
	}

	if prev, ok := s.targets[targetID]; ok {
		delete(s.sources, prev)
	}
	s.targets[targetID] = sourceIndex
	s.sources[sourceIndex] = targetID
	return nil
}

// SetField is Set with a catalog membership check.
func (s *State) SetField(catalog *schema.Catalog, targetID string, sourceIndex int) error {
	if _, ok := catalog.Field(targetID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, targetID)
	}
	return s.Set(targetID, sourceIndex)
}

// Clear removes the mapping for targetID and its transform configuration.
func (s *State) Clear(targetID string) {
	if idx, ok := s.targets[targetID]; ok {
		delete(s.sources, idx)
		delete(s.targets, targetID)
	}
	s.configs.Delete(targetID)
}

// Reset clears every mapping and configuration.
func (s *State) Reset() {
	for id := range s.targets {
		s.Clear(id)
	}
}

// Get returns the source index mapped to targetID.
func (s *State) Get(targetID string) (int, bool) {
	idx, ok := s.targets[targetID]
	return idx, ok
}

// Len returns the number of mapped fields.
func (s *State) Len() int {
	return len(s.targets)
}

// Entries returns a copy of the mapping.
func (s *State) Entries() map[string]int {
	return maps.Clone(s.targets)
}

// UsedSourceIndices returns the mapped source indices in ascending order.
func (s *State) UsedSourceIndices() []int {
	return slices.Sorted(maps.Keys(s.sources))
}

// IsComplete reports whether every required field (or every field, when
// requiredOnly is false) has a mapping. A catalog without required fields
// is complete when requiredOnly is set.
func (s *State) IsComplete(catalog *schema.Catalog, requiredOnly bool) bool {
	for _, f := range catalog.Fields() {
		if requiredOnly && !f.Required {
			continue
		}
		if _, ok := s.targets[f.ID]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the IDs of unmapped fields, required-only or all, in
// catalog order.
func (s *State) Missing(catalog *schema.Catalog, requiredOnly bool) []string {
	var missing []string
	for _, f := range catalog.Fields() {
		if requiredOnly && !f.Required {
			continue
		}
		if _, ok := s.targets[f.ID]; !ok {
			missing = append(missing, f.ID)
		}
	}
	return missing
}

// Progress returns the percentage of required fields that are mapped.
// It is 100 when the catalog has no required fields.
func (s *State) Progress(catalog *schema.Catalog) float64 {
	required := catalog.RequiredIDs()
	if len(required) == 0 {
		return 100
	}
	mapped := 0
	for _, id := range required {
		if _, ok := s.targets[id]; ok {
			mapped++
		}
	}
	return float64(mapped) * 100 / float64(len(required))
}

// ApplySuggestions sets every suggestion, in target ID order. It stops at
// the first conflict; suggestions applied before it are kept.
func (s *State) ApplySuggestions(suggestions map[string]int) error {
	for _, id := range slices.Sorted(maps.Keys(suggestions)) {
		if err := s.Set(id, suggestions[id]); err != nil {
			return fmt.Errorf("failed to apply suggestion for %s: %w", id, err)
		}
	}
	return nil
}
