// Package classify implements the Content Classifiers pipeline (C2):
// sampled, driver-assisted tests run against one field at a time within
// syncField. Each stage is independent and idempotent; later stages see
// whatever field view the previous stage produced, per spec.md §9's
// "explicit value + reducer" redesign of the original threaded mutable map.
package classify

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"syncer/internal/catalog"
	"syncer/internal/driver"
	"syncer/internal/infer"
	"syncer/internal/synclog"
)

// Tuning constants, exposed exactly as spec.md §4.2 names them.
const (
	URLThreshold         = 0.95
	CardinalityThreshold = 40
	AvgLengthThreshold   = 50
	JSONSampleCap        = 10000
)

// Dependencies bundles the external collaborators C2 needs: the Driver for
// this database, the Catalog Store, and a Logger for per-stage failure
// isolation (a nil Logger discards, so it's optional in unit tests).
type Dependencies struct {
	Driver driver.Driver
	Store  catalog.Store
	Log    *synclog.Logger
}

// Field runs the fixed C2 pipeline against field (belonging to table) and
// returns the field view that should be handed to later pipeline stages.
// fullSync=false skips steps 3-5 (no-preview, category/refresh, JSON),
// per spec.md §5's analyze toggle; the driver hook and URL marker still run
// because they are the cheap, non-row-count-bearing stages. Each stage is
// wrapped by tryStage so a failure in one stage is logged and swallowed
// rather than aborting the rest of the field's pipeline.
func Field(ctx context.Context, deps Dependencies, table *catalog.Table, field *catalog.Field, fullSync bool) (*catalog.Field, error) {
	current := field

	if annotator, ok := deps.Driver.(driver.FieldAnnotator); ok {
		current = tryStage(deps.Log, "driver annotator", current, func() (*catalog.Field, error) {
			annotated, err := annotator.DriverSpecificSyncField(ctx, current)
			if annotated == nil {
				return current, err
			}
			return annotated, err
		})
	}

	current = tryStage(deps.Log, "url marker", current, func() (*catalog.Field, error) {
		return urlMarker(ctx, deps, table, current)
	})

	if !fullSync {
		return tryStage(deps.Log, "nested fields", current, func() (*catalog.Field, error) {
			return nestedFields(ctx, deps, table, current, fullSync)
		}), nil
	}

	current = tryStage(deps.Log, "no-preview marker", current, func() (*catalog.Field, error) {
		return noPreviewMarker(ctx, deps, table, current)
	})
	current = tryStage(deps.Log, "category or refresh", current, func() (*catalog.Field, error) {
		return categoryOrRefresh(ctx, deps, current)
	})
	current = tryStage(deps.Log, "json marker", current, func() (*catalog.Field, error) {
		return jsonMarker(ctx, deps, table, current)
	})
	return tryStage(deps.Log, "nested fields", current, func() (*catalog.Field, error) {
		return nestedFields(ctx, deps, table, current, fullSync)
	}), nil
}

// tryStage runs one C2 stage under the same try-apply failure isolation
// syncengine.tryApply gives reconciliation units: a panic or error is logged
// at error severity and swallowed, and fallback (the field unchanged) is
// returned so later stages still see a usable value.
func tryStage(log *synclog.Logger, stage string, fallback *catalog.Field, fn func() (*catalog.Field, error)) (result *catalog.Field) {
	result = fallback
	defer func() {
		if r := recover(); r != nil {
			log.Error("classify stage panic recovered", zap.String("stage", stage), zap.Any("panic", r))
			result = fallback
		}
	}()
	next, err := fn()
	if err != nil {
		log.Error("classify stage failed", zap.String("stage", stage), zap.Error(err))
		return fallback
	}
	return next
}

// urlMarker is C2 step 2.
func urlMarker(ctx context.Context, deps Dependencies, table *catalog.Table, field *catalog.Field) (*catalog.Field, error) {
	if field.SpecialType != nil || !field.BaseType.IsTextual() {
		return field, nil
	}
	pct, err := deps.Driver.FieldPercentURLs(ctx, table, field)
	if err != nil {
		return nil, err
	}
	if pct <= URLThreshold {
		return field, nil
	}
	st := catalog.SpecialURL
	if err := deps.Store.UpdateField(ctx, field.ID, catalog.FieldPatch{SpecialType: &st}); err != nil {
		return nil, err
	}
	updated := *field
	updated.SpecialType = &st
	return &updated, nil
}

// noPreviewMarker is C2 step 3.
func noPreviewMarker(ctx context.Context, deps Dependencies, table *catalog.Table, field *catalog.Field) (*catalog.Field, error) {
	if !field.PreviewDisplay || !field.BaseType.IsTextual() {
		return field, nil
	}
	avg, err := deps.Driver.FieldAvgLength(ctx, table, field)
	if err != nil {
		return nil, err
	}
	if avg <= AvgLengthThreshold {
		return field, nil
	}
	no := false
	if err := deps.Store.UpdateField(ctx, field.ID, catalog.FieldPatch{PreviewDisplay: &no}); err != nil {
		return nil, err
	}
	updated := *field
	updated.PreviewDisplay = false
	return &updated, nil
}

// categoryOrRefresh is C2 step 4: a category mark and a FieldValues refresh
// are mutually exclusive outcomes of the same stage.
func categoryOrRefresh(ctx context.Context, deps Dependencies, field *catalog.Field) (*catalog.Field, error) {
	if field.SpecialType == nil && field.PreviewDisplay {
		count, err := deps.Store.FieldDistinctCount(ctx, field, CardinalityThreshold)
		if err != nil {
			return nil, err
		}
		if count <= 0 || count >= CardinalityThreshold {
			return field, nil
		}
		st := catalog.SpecialCategory
		if err := deps.Store.UpdateField(ctx, field.ID, catalog.FieldPatch{SpecialType: &st}); err != nil {
			return nil, err
		}
		updated := *field
		updated.SpecialType = &st
		return &updated, nil
	}

	should, err := deps.Store.ShouldHaveFieldValues(ctx, field)
	if err != nil {
		return nil, err
	}
	if should {
		if err := deps.Store.RefreshFieldValues(ctx, field); err != nil {
			return nil, err
		}
	}
	return field, nil
}

// jsonMarker is C2 step 5.
func jsonMarker(ctx context.Context, deps Dependencies, table *catalog.Table, field *catalog.Field) (*catalog.Field, error) {
	if field.SpecialType != nil || !field.BaseType.IsTextual() {
		return field, nil
	}
	samples, err := deps.Driver.FieldValuesSample(ctx, table, field, JSONSampleCap)
	if err != nil {
		return nil, err
	}
	sawNonBlank := false
	for _, s := range samples {
		if s == nil || strings.TrimSpace(*s) == "" {
			continue
		}
		sawNonBlank = true
		if !isJSONObjectOrArray(*s) {
			return field, nil
		}
	}
	if !sawNonBlank {
		return field, nil
	}

	st := catalog.SpecialJSON
	preview := false
	if err := deps.Store.UpdateField(ctx, field.ID, catalog.FieldPatch{SpecialType: &st, PreviewDisplay: &preview}); err != nil {
		return nil, err
	}
	updated := *field
	updated.SpecialType = &st
	updated.PreviewDisplay = false
	return &updated, nil
}

func isJSONObjectOrArray(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// nestedFields is C2 step 6: recursion into a DictionaryField's children.
func nestedFields(ctx context.Context, deps Dependencies, table *catalog.Table, field *catalog.Field, fullSync bool) (*catalog.Field, error) {
	if field.BaseType != catalog.DictionaryField {
		return field, nil
	}
	describer, ok := deps.Driver.(driver.NestedFieldDescriber)
	if !ok || !driver.HasCapability(deps.Driver, driver.CapabilityNestedFields) {
		return field, nil
	}

	shape, err := describer.ActiveNestedFieldNameToType(ctx, field)
	if err != nil {
		return nil, err
	}
	existing, err := deps.Store.ActiveFields(ctx, field.TableID, &field.ID)
	if err != nil {
		return nil, err
	}

	existingByName := make(map[string]*catalog.Field, len(existing))
	var stale []int64
	for _, e := range existing {
		existingByName[e.Name] = e
		if _, present := shape[e.Name]; !present {
			stale = append(stale, e.ID)
		}
	}
	if len(stale) > 0 {
		if err := deps.Store.DeactivateFields(ctx, stale); err != nil {
			return nil, err
		}
	}

	for name, bt := range shape {
		if _, present := existingByName[name]; present {
			continue
		}
		parentID := field.ID
		display := deps.Store.NameToHumanReadable(name)
		special := infer.Infer(infer.Descriptor{Name: name, BaseType: bt})
		child := &catalog.Field{
			TableID:        field.TableID,
			ParentID:       &parentID,
			Name:           name,
			BaseType:       bt,
			SpecialType:    special,
			DisplayName:    &display,
			PreviewDisplay: true,
			Active:         true,
		}
		created, err := deps.Store.CreateField(ctx, child)
		if err != nil {
			return nil, err
		}
		if _, err := Field(ctx, deps, table, created, fullSync); err != nil {
			return nil, err
		}
	}
	return field, nil
}
