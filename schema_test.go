package minidb_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sxwebdev/minidb"
)

func intPtr(v int64) *int64 { return &v }
func lenPtr(v int) *int     { return &v }

func userSchema() *minidb.TableSchema {
	return minidb.NewSchema().
		Field("name", minidb.FieldSpec{Kind: minidb.KindString, MinLen: lenPtr(1)}).
		Field("age", minidb.FieldSpec{Kind: minidb.KindInt, Optional: true, MinInt: intPtr(0), MaxInt: intPtr(150)}).
		Field("email", minidb.FieldSpec{Kind: minidb.KindString, Optional: true, Default: minidb.String("unknown")})
}

func TestSchema_Validate(t *testing.T) {
	validated, err := userSchema().Validate(minidb.Row{
		"name": minidb.String("Alice"),
		"age":  minidb.Int(30),
	})
	require.NoError(t, err)

	assert.Equal(t, minidb.String("Alice"), validated["name"])
	assert.Equal(t, minidb.Int(30), validated["age"])
	// Omitted optional field with a default gets the default.
	assert.Equal(t, minidb.String("unknown"), validated["email"])
}

func TestSchema_MissingRequiredField(t *testing.T) {
	_, err := userSchema().Validate(minidb.Row{"age": minidb.Int(30)})
	require.ErrorIs(t, err, minidb.ErrSchemaValidation)

	var verr *minidb.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestSchema_UnknownField(t *testing.T) {
	_, err := userSchema().Validate(minidb.Row{
		"name":    minidb.String("Alice"),
		"surname": minidb.String("Smith"),
	})
	require.ErrorIs(t, err, minidb.ErrSchemaValidation)
}

func TestSchema_Coercion(t *testing.T) {
	validated, err := userSchema().Validate(minidb.Row{
		"name": minidb.String("Alice"),
		"age":  minidb.String("30"),
	})
	require.NoError(t, err)
	assert.Equal(t, minidb.Int(30), validated["age"])

	_, err = userSchema().Validate(minidb.Row{
		"name": minidb.String("Alice"),
		"age":  minidb.String("not a number"),
	})
	require.ErrorIs(t, err, minidb.ErrSchemaValidation)
}

func TestSchema_Bounds(t *testing.T) {
	_, err := userSchema().Validate(minidb.Row{
		"name": minidb.String("Alice"),
		"age":  minidb.Int(200),
	})
	require.ErrorIs(t, err, minidb.ErrSchemaValidation)

	_, err = userSchema().Validate(minidb.Row{"name": minidb.String("")})
	require.ErrorIs(t, err, minidb.ErrSchemaValidation)
}

func TestSchema_AutoNowAdd(t *testing.T) {
	schema := minidb.NewSchema().
		Field("created", minidb.FieldSpec{Kind: minidb.KindTime, AutoNowAdd: true})

	before := time.Now()
	validated, err := schema.Validate(minidb.Row{})
	require.NoError(t, err)

	created, ok := validated["created"].Time()
	require.True(t, ok)
	assert.False(t, created.Before(before))
}

func TestSchema_TimeCoercion(t *testing.T) {
	schema := minidb.NewSchema().
		Field("created", minidb.FieldSpec{Kind: minidb.KindTime})

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	validated, err := schema.Validate(minidb.Row{
		"created": minidb.String(ts.Format(time.RFC3339Nano)),
	})
	require.NoError(t, err)

	got, ok := validated["created"].Time()
	require.True(t, ok)
	assert.True(t, ts.Equal(got))
}
