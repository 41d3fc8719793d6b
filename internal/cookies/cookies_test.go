package cookies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/sitedoc/internal/types"
)

func TestParseHeaderString(t *testing.T) {
	got, err := Parse("a=1; b=two", "x.test", "")
	require.NoError(t, err)

	assert.Equal(t, []types.Cookie{
		{Name: "a", Value: "1", Domain: "x.test", Path: "/"},
		{Name: "b", Value: "two", Domain: "x.test", Path: "/"},
	}, got)
}

func TestParseHeaderEdgeCases(t *testing.T) {
	got := ParseHeader(" token = abc=def== ;novalue; =orphan; ;c=", "x.test", "/app")

	assert.Equal(t, []types.Cookie{
		{Name: "token", Value: "abc=def==", Domain: "x.test", Path: "/app"},
		{Name: "c", Value: "", Domain: "x.test", Path: "/app"},
	}, got)
}

func TestParseEmptyInput(t *testing.T) {
	got, err := Parse("   ", "x.test", "/")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	content := `[
  {"name": "sid", "value": "s3cr3t"},
  {"name": "pref", "value": "dark", "domain": ".other.test", "path": "/settings"},
  {"name": "missing-value"},
  "not an object"
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, err := Parse(path, "x.test", "/")
	require.NoError(t, err)

	assert.Equal(t, []types.Cookie{
		{Name: "sid", Value: "s3cr3t", Domain: "x.test", Path: "/"},
		{Name: "pref", Value: "dark", Domain: ".other.test", Path: "/settings"},
	}, got)
}

func TestParseJSONFileNotAList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"sid","value":"x"}`), 0o600))

	got, err := Parse(path, "x.test", "/")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseJSONFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{`), 0o600))

	_, err := Parse(path, "x.test", "/")
	assert.Error(t, err)
}

func TestDomainFromURL(t *testing.T) {
	assert.Equal(t, "x.test", DomainFromURL("https://x.test:8443/app"))
	assert.Equal(t, "x.test", DomainFromURL(" https://x.test "))
	assert.Equal(t, "", DomainFromURL("::bad"))
}
