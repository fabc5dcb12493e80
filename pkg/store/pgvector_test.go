package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean string", "hello world", "hello world"},
		{"empty string", "", ""},
		{"invalid byte dropped", "ok\xffok", "okok"},
		{"multibyte preserved", "notícia ucrânia", "notícia ucrânia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeUTF8(tt.input))
		})
	}
}

type fakeRows struct {
	rows [][3]interface{}
	pos  int
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...interface{}) error {
	row := f.rows[f.pos-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*string) = row[1].(string)
	if row[2] != nil {
		*dest[2].(*map[string]interface{}) = row[2].(map[string]interface{})
	}
	return nil
}

func (f *fakeRows) Err() error { return nil }

func TestScanResults(t *testing.T) {
	rows := &fakeRows{rows: [][3]interface{}{
		{"id-1", "first chunk", map[string]interface{}{"url": "https://example.com/1"}},
		{"id-2", "second chunk", nil},
	}}

	results, err := scanResults(rows)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "id-1", results[0].ID)
	assert.Equal(t, "first chunk", results[0].Content)
	assert.Equal(t, "https://example.com/1", results[0].URL())
	// the row id is reflected back into metadata
	assert.Equal(t, "id-1", results[0].Metadata["id"])

	assert.Equal(t, "id-2", results[1].ID)
	assert.NotNil(t, results[1].Metadata)
	assert.Equal(t, "id-2", results[1].Metadata["id"])
}

func TestNewWithConfigRequiresEmbedder(t *testing.T) {
	_, err := NewWithConfig(VectorStoreConfig{ConnString: "postgres://localhost/test"}, nil)
	assert.Error(t, err)
}
