package region

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecon/mvmatch/internal/scene"
)

func TestSet_Accessors(t *testing.T) {
	set, err := NewScalarSet(2, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, 3, set.Count)
	assert.Equal(t, []float32{3, 4}, set.ScalarAt(1))

	bin, err := NewBinarySet(2, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	require.NoError(t, err)

	assert.Equal(t, 2, bin.Count)
	assert.Equal(t, []byte{0xCC, 0xDD}, bin.BinaryAt(1))
}

func TestNewSet_RejectsRaggedData(t *testing.T) {
	_, err := NewScalarSet(3, []float32{1, 2, 3, 4})
	assert.Error(t, err)

	_, err = NewBinarySet(0, nil)
	assert.Error(t, err)
}

func TestCodec_ScalarRoundTrip(t *testing.T) {
	set, err := NewScalarSet(4, []float32{0.5, -1, 2, 3, 7, 8, 9, 10})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "view.desc")
	require.NoError(t, WriteFile(path, set))

	got, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, scene.DescriptorScalar, got.Type)
	assert.Equal(t, set.Scalars, got.Scalars)
	assert.Equal(t, 2, got.Count)
}

func TestCodec_BinaryRoundTrip(t *testing.T) {
	set, err := NewBinarySet(8, bytes.Repeat([]byte{0xF0}, 24))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, set))

	got, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, scene.DescriptorBinary, got.Type)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, set.Binary, got.Binary)
}

func TestRead_RejectsCorruptInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("NOPE\x01\x00\x04\x00\x00\x00\x00\x00\x00\x00")},
		{"truncated header", []byte("RSET\x01")},
		{"truncated payload", []byte("RSET\x01\x00\x04\x00\x00\x00\x02\x00\x00\x00\x01\x02")},
		// A 14-byte header declaring 2^64-ish elements must be rejected
		// up front, not by attempting the allocation.
		{"oversized header", []byte("RSET\x01\x00\xff\xff\xff\xff\xff\xff\xff\xff")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestWriteFile_LeavesNoTempOnSuccess(t *testing.T) {
	set, err := NewScalarSet(1, []float32{1})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "v.desc")
	require.NoError(t, WriteFile(path, set))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "v.desc", entries[0].Name())
}
