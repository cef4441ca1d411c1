package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaKeyDistinguishesAbsentSchema(t *testing.T) {
	empty := ""
	assert.NotEqual(t, SchemaKey(nil, "users"), SchemaKey(&empty, "users"))
	assert.Equal(t, SchemaKey(nil, "users"), SchemaKey(nil, "users"))
}

func TestIsKnownBaseType(t *testing.T) {
	assert.True(t, IsKnownBaseType(IntegerField))
	assert.False(t, IsKnownBaseType(BaseType("NotARealType")))
}

func TestIsKnownSpecialType(t *testing.T) {
	assert.True(t, IsKnownSpecialType(SpecialLatitude))
	assert.False(t, IsKnownSpecialType(SpecialType("bogus")))
}

func TestIsTextual(t *testing.T) {
	assert.True(t, CharField.IsTextual())
	assert.True(t, TextField.IsTextual())
	assert.False(t, IntegerField.IsTextual())
}

func TestFieldIsTopLevel(t *testing.T) {
	f := &Field{}
	assert.True(t, f.IsTopLevel())

	parentID := int64(1)
	f.ParentID = &parentID
	assert.False(t, f.IsTopLevel())
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"user_id":    "User Id",
		"first-name": "First Name",
		"email":      "Email",
		"  ":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Humanize(in), "input %q", in)
	}
}
