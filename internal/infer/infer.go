// Package infer implements the Special-Type Inferrer (C1): a pure,
// deterministic function from a field's name, base_type, and prior state to
// an inferred special_type, driven by an ordered, self-validating pattern
// table.
package infer

import (
	"fmt"
	"regexp"
	"strings"

	"syncer/internal/catalog"
)

// Descriptor is the C1 input: a field's name, base_type, whether it
// participates in a primary key, and any special_type already recorded for
// it.
type Descriptor struct {
	Name             string
	BaseType         catalog.BaseType
	PrimaryKey       bool
	PriorSpecialType *catalog.SpecialType
}

// rule is one row of the ordered pattern table: a compiled regex, the set of
// base_types it is gated on (nil means any base_type), and the special_type
// it produces on match.
type rule struct {
	pattern  string
	compiled *regexp.Regexp
	allowed  []catalog.BaseType // nil = wildcard
	special  catalog.SpecialType
}

func (r rule) allows(bt catalog.BaseType) bool {
	if r.allowed == nil {
		return true
	}
	for _, a := range r.allowed {
		if a == bt {
			return true
		}
	}
	return false
}

var (
	floatGated   = []catalog.BaseType{catalog.FloatField}
	intOrText    = []catalog.BaseType{catalog.IntegerField, catalog.BigIntegerField, catalog.CharField, catalog.TextField}
	boolOrInt    = []catalog.BaseType{catalog.BooleanField, catalog.IntegerField}
	textualGated = []catalog.BaseType{catalog.CharField, catalog.TextField}
)

// patternTable is the stable, documented asset spec.md §4.1 requires: an
// ordered list of (regex, allowed base_types, special_type) tuples. The
// first whose regex matches the lower-cased field name and whose allowed set
// contains base_type (or is wildcard) wins. Order within a bucket follows
// the order spec.md lists it in; do not reorder without re-reading §4.1.
var patternTable = []rule{
	{pattern: `_lat$`, allowed: floatGated, special: catalog.SpecialLatitude},
	{pattern: `_lon$`, allowed: floatGated, special: catalog.SpecialLongitude},
	{pattern: `_lng$`, allowed: floatGated, special: catalog.SpecialLongitude},
	{pattern: `_long$`, allowed: floatGated, special: catalog.SpecialLongitude},
	{pattern: `_longitude$`, allowed: floatGated, special: catalog.SpecialLongitude},
	{pattern: `_latitude$`, allowed: floatGated, special: catalog.SpecialLatitude},
	{pattern: `^lat$`, allowed: floatGated, special: catalog.SpecialLatitude},
	{pattern: `^latitude$`, allowed: floatGated, special: catalog.SpecialLatitude},
	{pattern: `^lon$`, allowed: floatGated, special: catalog.SpecialLongitude},
	{pattern: `^lng$`, allowed: floatGated, special: catalog.SpecialLongitude},
	{pattern: `^long$`, allowed: floatGated, special: catalog.SpecialLongitude},
	{pattern: `^longitude$`, allowed: floatGated, special: catalog.SpecialLongitude},

	{pattern: `_rating$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `_type$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `^rating$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `^role$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `^sex$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `^status$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `^type$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `^currency$`, allowed: intOrText, special: catalog.SpecialCategory},
	{pattern: `^gender$`, allowed: intOrText, special: catalog.SpecialCategory},

	{pattern: `^postalcode$`, allowed: intOrText, special: catalog.SpecialZipCode},
	{pattern: `^postal_code$`, allowed: intOrText, special: catalog.SpecialZipCode},
	{pattern: `^zip_code$`, allowed: intOrText, special: catalog.SpecialZipCode},
	{pattern: `^zipcode$`, allowed: intOrText, special: catalog.SpecialZipCode},

	{pattern: `^active$`, allowed: boolOrInt, special: catalog.SpecialCategory},

	{pattern: `_url$`, allowed: textualGated, special: catalog.SpecialURL},
	{pattern: `^url$`, allowed: textualGated, special: catalog.SpecialURL},
	{pattern: `^city$`, allowed: textualGated, special: catalog.SpecialCity},
	{pattern: `^country$`, allowed: textualGated, special: catalog.SpecialCountry},
	{pattern: `^countrycode$`, allowed: textualGated, special: catalog.SpecialCountry},
	{pattern: `^first_name$`, allowed: textualGated, special: catalog.SpecialName},
	{pattern: `^last_name$`, allowed: textualGated, special: catalog.SpecialName},
	{pattern: `^full_name$`, allowed: textualGated, special: catalog.SpecialName},
	{pattern: `^name$`, allowed: textualGated, special: catalog.SpecialName},
	{pattern: `^state$`, allowed: textualGated, special: catalog.SpecialState},
}

// Validate compiles every regex and checks every allowed base_type and
// produced special_type against the catalog's known enumerations. It is the
// self-validation spec.md §4.1/§7 requires; a failure is an
// InferenceTableMisconfiguration and is fatal at startup.
func Validate() error {
	for i := range patternTable {
		r := &patternTable[i]
		compiled, err := regexp.Compile(r.pattern)
		if err != nil {
			return fmt.Errorf("infer: pattern table row %d: invalid regex %q: %w", i, r.pattern, err)
		}
		r.compiled = compiled

		for _, bt := range r.allowed {
			if !catalog.IsKnownBaseType(bt) {
				return fmt.Errorf("infer: pattern table row %d: unknown base_type %q", i, bt)
			}
		}
		if !catalog.IsKnownSpecialType(r.special) {
			return fmt.Errorf("infer: pattern table row %d: unknown special_type %q", i, r.special)
		}
	}
	return nil
}

func init() {
	if err := Validate(); err != nil {
		panic(err)
	}
}

// Infer returns the special_type C1 assigns to d, or nil if none applies.
// Decision order, first match wins:
//
//  1. d.PriorSpecialType, if present, is returned unchanged.
//  2. d.PrimaryKey, or a name of exactly "id" (case-insensitive), yields id.
//  3. The ordered pattern table is walked; the first row whose regex matches
//     the lower-cased name and whose allowed set contains d.BaseType wins.
//  4. Otherwise nil: no inference.
func Infer(d Descriptor) *catalog.SpecialType {
	if d.PriorSpecialType != nil {
		return d.PriorSpecialType
	}

	lower := strings.ToLower(d.Name)

	if d.PrimaryKey || lower == "id" {
		id := catalog.SpecialID
		return &id
	}

	for _, r := range patternTable {
		if !r.allows(d.BaseType) {
			continue
		}
		if r.compiled.MatchString(lower) {
			special := r.special
			return &special
		}
	}
	return nil
}
