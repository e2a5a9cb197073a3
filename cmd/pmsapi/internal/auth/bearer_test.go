package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "missing header", header: "", ok: false},
		{name: "bearer", header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{name: "extra spaces", header: "  Bearer    abc.def.ghi  ", token: "abc.def.ghi", ok: true},
		{name: "empty token", header: "Bearer ", ok: false},
		{name: "scheme only", header: "Bearer", ok: false},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", ok: false},
		{name: "scheme prefix without space", header: "Bearerabc", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			token, ok := BearerToken(h)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}
