package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const farms = `{
  "solar_farms": [
    {"id": 1, "name": "Alpha", "uuid": "a-1"},
    {"id": 2, "name": "Test Postman Routes - QA Team", "uuid": "8bb07ba1-2661-4f89-8dca-4292c378e665"},
    {"id": 3, "name": "Beta", "uuid": "b-3"},
    {"id": 4, "name": "Test Postman Routes - QA Team", "uuid": "dup-4"}
  ],
  "meta": {"org.id": 228, "tags": ["a", "b"]}
}`

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    any
		matches int
	}{
		{"whole document key", "meta.tags[1]", "b", 0},
		{"dotted key via search", `solar_farms[id="3"].name`, "Beta", 1},
		{"index", "solar_farms[0].uuid", "a-1", 0},
		{"numeric value", "solar_farms[1].id", float64(2), 0},
		{"first match wins", `solar_farms[name="Test Postman Routes - QA Team"].uuid`, "8bb07ba1-2661-4f89-8dca-4292c378e665", 2},
		{"single quoted search", `solar_farms[name='Alpha'].id`, float64(1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Lookup([]byte(farms), tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Raw)
			assert.Equal(t, tt.matches, v.Matches)
			assert.False(t, v.Multi)
		})
	}
}

func TestLookup_Wildcard(t *testing.T) {
	v, err := Lookup([]byte(farms), "solar_farms[*].uuid")
	require.NoError(t, err)
	assert.True(t, v.Multi)
	assert.Equal(t, []any{"a-1", "8bb07ba1-2661-4f89-8dca-4292c378e665", "b-3", "dup-4"}, v.Raw)
	assert.Equal(t, `["a-1","8bb07ba1-2661-4f89-8dca-4292c378e665","b-3","dup-4"]`, v.String())
}

func TestLookup_WildcardMissingField(t *testing.T) {
	doc := `{"items": [{"uuid": "x"}, {"name": "no uuid"}]}`
	_, err := Lookup([]byte(doc), "items[*].uuid")
	require.ErrorIs(t, err, ErrPathNotFound)
	assert.Contains(t, err.Error(), "record 1")
}

func TestLookup_EmptyPath(t *testing.T) {
	v, err := Lookup([]byte(`{"a": 1}`), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v.Raw)
	assert.Equal(t, `{"a": 1}`, v.JSON())
}

func TestLookup_ObjectKeys(t *testing.T) {
	v, err := Lookup([]byte(`{"org.id": 7}`), "[0]")
	require.Error(t, err)
	assert.Nil(t, v)

	v, err = Lookup([]byte(farms), "meta")
	require.NoError(t, err)
	assert.Contains(t, v.JSON(), `"org.id": 228`)
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
		want error
	}{
		{"invalid json", `{"solar_farms": [`, "solar_farms", ErrInvalidJSON},
		{"plain text", `hello`, "a", ErrInvalidJSON},
		{"missing key", farms, "organizations", ErrPathNotFound},
		{"index out of range", farms, "solar_farms[9]", ErrPathNotFound},
		{"not an array", farms, "meta[0]", ErrPathNotFound},
		{"no match", farms, `solar_farms[name="Nope"].uuid`, ErrNoMatch},
		{"bad selector", farms, "solar_farms[name]", ErrInvalidPath},
		{"unclosed bracket", farms, "solar_farms[0", ErrInvalidPath},
		{"empty segment", farms, "meta..tags", ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lookup([]byte(tt.doc), tt.path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLookup_NoMatchMessage(t *testing.T) {
	_, err := Lookup([]byte(farms), `solar_farms[name="Nope"].uuid`)
	require.Error(t, err)
	assert.Equal(t, `no record matches: solar_farms with name="Nope"`, err.Error())
}
