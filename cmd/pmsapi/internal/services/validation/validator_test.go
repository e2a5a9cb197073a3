package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *RequestValidator {
	t.Helper()
	v, err := NewRequestValidator(8)
	require.NoError(t, err)
	return v
}

func TestRequestValidator_Valid(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		schema string
		body   string
	}{
		{SchemaLogin, `{"email":"a@example.com","password":"x"}`},
		{SchemaCreateUser, `{"name":"Ann","username":"ann.lee","email":"ann@example.com","password":"secret1","roles":["DEVELOPER"]}`},
		{SchemaUpdateUser, `{"active":false}`},
		{SchemaCreateRole, `{"name":"REVIEWER","description":"Code reviewer"}`},
		{SchemaUpdateRole, `{"description":"Reviews code"}`},
	}

	for _, tt := range tests {
		t.Run(tt.schema, func(t *testing.T) {
			assert.NoError(t, v.Validate(tt.schema, []byte(tt.body)))
		})
	}
}

func TestRequestValidator_Invalid(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name     string
		schema   string
		body     string
		wantPath string
	}{
		{"not json", SchemaLogin, `{"email":`, "$"},
		{"missing password", SchemaLogin, `{"email":"a@example.com"}`, "$"},
		{"empty email", SchemaLogin, `{"email":"","password":"x"}`, "$.email"},
		{"bad email format", SchemaCreateUser, `{"name":"A","username":"ann","email":"not-an-email","password":"secret1"}`, "$.email"},
		{"short password", SchemaCreateUser, `{"name":"A","username":"ann","email":"a@example.com","password":"123"}`, "$.password"},
		{"unknown field", SchemaCreateUser, `{"name":"A","username":"ann","email":"a@example.com","password":"secret1","admin":true}`, "$"},
		{"empty update", SchemaUpdateUser, `{}`, "$"},
		{"active not bool", SchemaUpdateUser, `{"active":"yes"}`, "$.active"},
		{"role name with spaces inside", SchemaCreateRole, `{"name":"QA LEAD"}`, "$.name"},
		{"empty role update", SchemaUpdateRole, `{}`, "$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.schema, []byte(tt.body))
			require.Error(t, err)

			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.wantPath, reqErr.Path)
			assert.NotEmpty(t, reqErr.Message)
		})
	}
}

func TestRequestValidator_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)
	assert.ErrorIs(t, v.Validate("nope", []byte(`{}`)), ErrUnknownSchema)
}

func TestRequestValidator_CachesCompiledSchemas(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.Validate(SchemaLogin, []byte(`{"email":"a@b.c","password":"x"}`)))
	require.NoError(t, v.Validate(SchemaLogin, []byte(`{"email":"a@b.c","password":"y"}`)))
	assert.Equal(t, 1, v.CacheLen())
}
