package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"utf8", []byte("Grüße from IT"), "Grüße from IT"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "hello"...), "hello"},
		{"windows-1252", []byte{'c', 'a', 'f', 0xE9, ' ', 0x80, '5'}, "café €5"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi"},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBinary(t *testing.T) {
	assert.True(t, Binary([]byte{0x7F, 'E', 'L', 'F', 0, 0, 1}))
	assert.False(t, Binary([]byte("password=hunter2\n")))
	assert.False(t, Binary([]byte{0xFF, 0xFE, 'h', 0}))
}
