package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncer/internal/catalog"
)

func TestValidateSelfChecksPatternTable(t *testing.T) {
	require.NoError(t, Validate())
}

func special(st catalog.SpecialType) *catalog.SpecialType { return &st }

func TestInferPriorSpecialTypeWins(t *testing.T) {
	prior := special(catalog.SpecialCategory)
	got := Infer(Descriptor{Name: "id", BaseType: catalog.IntegerField, PrimaryKey: true, PriorSpecialType: prior})
	require.NotNil(t, got)
	assert.Equal(t, catalog.SpecialCategory, *got)
}

func TestInferPrimaryKeyYieldsID(t *testing.T) {
	got := Infer(Descriptor{Name: "pk", BaseType: catalog.IntegerField, PrimaryKey: true})
	require.NotNil(t, got)
	assert.Equal(t, catalog.SpecialID, *got)
}

func TestInferNameIDYieldsID(t *testing.T) {
	got := Infer(Descriptor{Name: "ID", BaseType: catalog.IntegerField})
	require.NotNil(t, got)
	assert.Equal(t, catalog.SpecialID, *got)
}

func TestInferPatternTableEveryRow(t *testing.T) {
	for i, r := range patternTable {
		if len(r.allowed) == 0 {
			continue
		}
		name := stripAnchors(r.pattern)
		for _, bt := range r.allowed {
			got := Infer(Descriptor{Name: name, BaseType: bt})
			require.NotNilf(t, got, "row %d pattern %q base_type %q", i, r.pattern, bt)
			assert.Equalf(t, r.special, *got, "row %d pattern %q base_type %q", i, r.pattern, bt)
		}
	}
}

func TestInferDisqualifiedBaseTypeNoMatch(t *testing.T) {
	got := Infer(Descriptor{Name: "latitude", BaseType: catalog.CharField})
	assert.Nil(t, got)
}

func TestInferNoMatch(t *testing.T) {
	got := Infer(Descriptor{Name: "widget_count", BaseType: catalog.IntegerField})
	assert.Nil(t, got)
}

// stripAnchors turns a row's regex literal into a concrete field name that
// matches it, by dropping ^/$; suffix patterns (leading "_") keep their
// underscore and get a "start" prefix so they are tested with a realistic name.
func stripAnchors(pattern string) string {
	name := pattern
	if len(name) > 0 && name[0] == '^' {
		name = name[1:]
	}
	if len(name) > 0 && name[len(name)-1] == '$' {
		name = name[:len(name)-1]
	}
	if len(name) > 0 && name[0] == '_' {
		return "start" + name
	}
	return name
}
