package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC), ID: 42}

	got, err := Decode(c.Encode())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, int64(42), got.ID)
}

func TestDecode_EmptyIsFirstPage(t *testing.T) {
	got, err := Decode("  ")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecode_Malformed(t *testing.T) {
	for _, s := range []string{
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("no-separator")),
		base64.RawURLEncoding.EncodeToString([]byte("abc:1")),
		base64.RawURLEncoding.EncodeToString([]byte("1700000000:xyz")),
		base64.RawURLEncoding.EncodeToString([]byte("1700000000:0")),
		base64.RawURLEncoding.EncodeToString([]byte("-5:3")),
	} {
		_, err := Decode(s)
		assert.ErrorIs(t, err, ErrInvalidCursor, s)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, ClampLimit(0, 20, 100))
	assert.Equal(t, 20, ClampLimit(-3, 0, 0))
	assert.Equal(t, 1, ClampLimit(1, 20, 100))
	assert.Equal(t, 100, ClampLimit(1000, 20, 100))
	assert.Equal(t, 37, ClampLimit(37, 20, 100))
}
