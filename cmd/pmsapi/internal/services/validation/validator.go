package validation

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Request schema names
const (
	SchemaLogin      = "login"
	SchemaCreateUser = "create_user"
	SchemaUpdateUser = "update_user"
	SchemaCreateRole = "create_role"
	SchemaUpdateRole = "update_role"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrUnknownSchema is returned when no embedded schema has the requested name.
var ErrUnknownSchema = errors.New("unknown request schema")

// RequestError describes why a request body was rejected.
type RequestError struct {
	Path    string // JSON path of the offending value, e.g. "$.email"
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("validation failed at '%s': %s", e.Path, e.Message)
}

// RequestValidator validates JSON request bodies against the embedded schemas.
// Compiled schemas are kept in an LRU cache and it is safe for concurrent use.
type RequestValidator struct {
	schemaCache *lru.Cache[string, *jsonschema.Schema]
}

// NewRequestValidator creates a validator caching up to cacheSize compiled schemas.
func NewRequestValidator(cacheSize int) (*RequestValidator, error) {
	cache, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &RequestValidator{schemaCache: cache}, nil
}

// Validate checks body against the named schema. It returns *RequestError when
// the body is malformed or violates the schema.
func (v *RequestValidator) Validate(name string, body []byte) error {
	schema, err := v.schema(name)
	if err != nil {
		return err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &RequestError{Path: "$", Message: "request body is not valid JSON"}
	}

	if err := schema.Validate(instance); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func (v *RequestValidator) schema(name string) (*jsonschema.Schema, error) {
	if cached, found := v.schemaCache.Get(name); found {
		return cached, nil
	}

	schema, err := compileSchema(name)
	if err != nil {
		return nil, err
	}
	v.schemaCache.Add(name, schema)
	return schema, nil
}

// compileSchema compiles an embedded schema with format assertions enabled.
func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	compiler.AssertFormat()

	schemaURL := name + ".json"
	if err := compiler.AddResource(schemaURL, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// formatValidationError reports the first leaf failure with its JSON path.
func formatValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &RequestError{Path: "$", Message: err.Error()}
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	path := "$"
	var parts []string
	for _, part := range leaf.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}

	msg := leafMessage(leaf)
	if len(msg) > 200 {
		msg = msg[:200] + "... (truncated)"
	}
	return &RequestError{Path: path, Message: msg}
}

// leafMessage strips the library's multi-line preamble, keeping the last line.
func leafMessage(ve *jsonschema.ValidationError) string {
	msg := strings.TrimSpace(ve.Error())
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = strings.TrimSpace(msg[i+1:])
	}
	msg = strings.TrimPrefix(msg, "- ")
	// "at '/email': ..." duplicates the path we already report
	if strings.HasPrefix(msg, "at '") {
		if i := strings.Index(msg, "': "); i >= 0 {
			msg = msg[i+3:]
		}
	}
	return msg
}

// CacheLen returns the number of compiled schemas held, for monitoring
func (v *RequestValidator) CacheLen() int {
	return v.schemaCache.Len()
}
