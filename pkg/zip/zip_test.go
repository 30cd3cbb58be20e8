package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRenamesDuplicates(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []Asset{
		{Filename: "campaigns/c1/01.png", Data: []byte("one")},
		{Filename: "other/01.png", Data: []byte("two")},
		{Filename: "campaigns/c1/02.jpg", Data: []byte("three")},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"01.png", "01-1.png", "02.jpg"}, names)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}
