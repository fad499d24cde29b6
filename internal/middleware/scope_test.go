package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyScope(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   Scope
	}{
		{http.MethodGet, "/api/lpwx/goods", ScopeLpwx},
		{http.MethodPost, "/api/lpwx/auth/wx-login", ScopeLpwx},
		{http.MethodGet, "/api/lpwx/fleet/vehicles", ScopeLpwxFleet},
		{http.MethodPost, "/api/lpwx/fleet/records", ScopeLpwxFleet},
		{http.MethodGet, "/api/dc/cases", ScopeDcCasesRead},
		{http.MethodGet, "/api/dc/cases/12", ScopeDcCasesRead},
		{http.MethodPost, "/api/dc/cases", ScopeDc},
		{http.MethodDelete, "/api/dc/cases/12", ScopeDc},
		{http.MethodGet, "/api/dc/casesearch", ScopeDc}, // not the cases group
		{http.MethodPost, "/api/dc/auth/login", ScopeDc},
		{http.MethodPost, "/api/dc/upload", ScopeDc},
		{http.MethodGet, "/healthz", ScopeOther},
		{http.MethodGet, "/api/other/thing", ScopeOther},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, ClassifyScope(tc.method, tc.path), "%s %s", tc.method, tc.path)
	}
}

func TestHeaderToken(t *testing.T) {
	h := http.Header{}
	h.Set("X-Token", "  abc.def.ghi  ")
	assert.Equal(t, "abc.def.ghi", customToken(h))

	h = http.Header{}
	h.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(h))

	// bare token without the Bearer prefix is accepted too
	h = http.Header{}
	h.Set("Authorization", "abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(h))

	// prefix matching is case-insensitive
	h = http.Header{}
	h.Set("Authorization", "bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(h))

	// first non-empty value wins
	h = http.Header{}
	h.Add("X-Token", "")
	h.Add("X-Token", "first.second.third")
	h.Add("X-Token", "other.other.other")
	assert.Equal(t, "first.second.third", customToken(h))

	// lowercase header names canonicalise to the same header
	h = http.Header{}
	h["X-Token"] = nil
	h.Set("x-token", "abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", customToken(h))

	assert.Equal(t, "", customToken(http.Header{}))
}

func TestWellFormed(t *testing.T) {
	assert.True(t, wellFormed("aaa.bbb.ccc"))
	assert.False(t, wellFormed("aaabbbccc"))
	assert.False(t, wellFormed("aaa.bbb"))
	assert.False(t, wellFormed("aaa.bbb.ccc.ddd"))
	assert.False(t, wellFormed("..\x00"))
	assert.False(t, wellFormed(".."))
	assert.False(t, wellFormed("a..c"))
}
