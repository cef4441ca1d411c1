package reconcile

import (
	"context"
	"fmt"
	"strings"

	"syncer/internal/catalog"
	"syncer/internal/driver"
	"syncer/internal/infer"
)

// Fields is the Field Reconciler (C4), steps 1-4: it ensures table has a
// display_name, then reconciles its top-level fields against fields,
// deactivating vanished columns and inserting or updating the rest. Steps
// 5-6 (row count, content classifiers) are the Sync Orchestrator's
// responsibility, run over the active fields this function returns: the
// row count only when full_sync is set, the classifiers on every sync with
// their sampling stages gated on full_sync.
func Fields(ctx context.Context, deps Dependencies, table *catalog.Table, fields []driver.DescribedField) (*catalog.Table, []*catalog.Field, error) {
	if table.DisplayName == nil {
		display := deps.Store.NameToHumanReadable(table.Name)
		if err := deps.Store.UpdateTable(ctx, table.ID, catalog.TablePatch{DisplayName: &display}); err != nil {
			return nil, nil, fmt.Errorf("reconcile: set table display_name: %w", err)
		}
		updated := *table
		updated.DisplayName = &display
		table = &updated
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, nil, &ContractViolation{Operation: "describeTable", Reason: fmt.Sprintf("table %s: field with empty name", table.Name)}
		}
		lower := strings.ToLower(f.Name)
		if seen[lower] {
			return nil, nil, &ContractViolation{Operation: "describeTable", Reason: fmt.Sprintf("table %s: duplicate field %q", table.Name, f.Name)}
		}
		seen[lower] = true
		if !catalog.IsKnownBaseType(f.BaseType) {
			return nil, nil, &ContractViolation{Operation: "describeTable", Reason: fmt.Sprintf("table %s: field %q has unknown base_type %q", table.Name, f.Name, f.BaseType)}
		}
	}

	existing, err := deps.Store.ActiveFields(ctx, table.ID, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile: load active fields for %s: %w", table.Name, err)
	}
	existingByName := make(map[string]*catalog.Field, len(existing))
	for _, e := range existing {
		existingByName[strings.ToLower(e.Name)] = e
	}

	var stale []int64
	for lower, e := range existingByName {
		if seen[lower] {
			continue
		}
		stale = append(stale, e.ID)
		deps.Log.Deactivated("field", e.String())
	}
	if len(stale) > 0 {
		if err := deps.Store.DeactivateFields(ctx, stale); err != nil {
			return nil, nil, fmt.Errorf("reconcile: deactivate fields of %s: %w", table.Name, err)
		}
	}

	result := make([]*catalog.Field, 0, len(fields))
	for _, f := range fields {
		lower := strings.ToLower(f.Name)
		prior := existingByName[lower]

		var priorSpecial *catalog.SpecialType
		if prior != nil {
			priorSpecial = prior.SpecialType
		}
		special := infer.Infer(infer.Descriptor{Name: f.Name, BaseType: f.BaseType, PrimaryKey: f.PrimaryKey, PriorSpecialType: priorSpecial})

		display := resolveDisplayName(deps, prior, f.Name)

		if prior == nil {
			created, err := deps.Store.CreateField(ctx, &catalog.Field{
				TableID:        table.ID,
				Name:           f.Name,
				BaseType:       f.BaseType,
				SpecialType:    special,
				DisplayName:    display,
				PreviewDisplay: true,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("reconcile: create field %s.%s: %w", table.Name, f.Name, err)
			}
			deps.Log.Created("field", created.String())
			result = append(result, created)
			continue
		}

		patch := catalog.FieldPatch{}
		changed := false
		if prior.BaseType != f.BaseType {
			bt := f.BaseType
			patch.BaseType = &bt
			changed = true
		}
		if !specialTypeEqual(prior.SpecialType, special) {
			patch.SpecialType = special
			changed = true
		}
		if !displayNameEqual(prior.DisplayName, display) {
			patch.DisplayName = display
			changed = true
		}

		current := prior
		if changed {
			if err := deps.Store.UpdateField(ctx, prior.ID, patch); err != nil {
				return nil, nil, fmt.Errorf("reconcile: update field %s.%s: %w", table.Name, f.Name, err)
			}
			updated := *prior
			if patch.BaseType != nil {
				updated.BaseType = *patch.BaseType
			}
			if patch.SpecialType != nil {
				updated.SpecialType = patch.SpecialType
			}
			if patch.DisplayName != nil {
				updated.DisplayName = patch.DisplayName
			}
			current = &updated
		}
		result = append(result, current)
	}
	return table, result, nil
}

func resolveDisplayName(deps Dependencies, prior *catalog.Field, name string) *string {
	if prior != nil && prior.DisplayName != nil {
		return prior.DisplayName
	}
	d := deps.Store.NameToHumanReadable(name)
	return &d
}

func specialTypeEqual(a, b *catalog.SpecialType) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func displayNameEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
