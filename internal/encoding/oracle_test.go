package encoding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestDetectASCII(t *testing.T) {
	path := writeTemp(t, "a.log", []byte("hello\nworld\n"))
	label, ok := NewDefaultOracle().Detect(path)
	assert.True(t, ok)
	assert.Equal(t, LabelASCIICompatible, label)
}

func TestDetectUTF16LEBom(t *testing.T) {
	content := []byte{0xFF, 0xFE, 'A', 0x00, '\n', 0x00}
	path := writeTemp(t, "le.log", content)
	label, ok := NewDefaultOracle().Detect(path)
	assert.True(t, ok)
	assert.Equal(t, LabelUTF16LE, label)
}

func TestDetectUTF16BEBom(t *testing.T) {
	content := []byte{0xFE, 0xFF, 0x00, 'A', 0x00, '\n'}
	path := writeTemp(t, "be.log", content)
	label, ok := NewDefaultOracle().Detect(path)
	assert.True(t, ok)
	assert.Equal(t, LabelUTF16BE, label)
}

func TestDetectEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.log", nil)
	label, ok := NewDefaultOracle().Detect(path)
	assert.True(t, ok)
	assert.Equal(t, LabelASCIICompatible, label)
}

func TestDetectBOMlessUTF16LE(t *testing.T) {
	// Repeated UTF-16LE "A" code units ('A', 0x00), no BOM.
	var content []byte
	for i := 0; i < 50; i++ {
		content = append(content, 'A', 0x00)
	}
	path := writeTemp(t, "nobom-le.log", content)
	label, ok := NewDefaultOracle().Detect(path)
	assert.True(t, ok)
	assert.Equal(t, LabelUTF16LE, label)
}

func TestDetectBinaryIsUnsupported(t *testing.T) {
	content := make([]byte, 256)
	for i := range content {
		content[i] = byte(i)
	}
	path := writeTemp(t, "binary.dat", content)
	label, ok := NewDefaultOracle().Detect(path)
	assert.False(t, ok)
	assert.Equal(t, LabelUnknown, label)
}

func TestDetectMissingFile(t *testing.T) {
	label, ok := NewDefaultOracle().Detect(filepath.Join(t.TempDir(), "nope.log"))
	assert.False(t, ok)
	assert.Equal(t, LabelUnknown, label)
}
