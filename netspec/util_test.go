package netspec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJsonData(map[string]int{"a": 1}, &buf))
	require.NoError(t, WriteJsonData([]string{"x"}, &buf))

	assert.Equal(t, uint32(7), binary.BigEndian.Uint32(buf.Bytes()[0:4]))

	var first map[string]int
	require.NoError(t, ReadJsonData(&buf, &first))
	assert.Equal(t, 1, first["a"])
	var second []string
	require.NoError(t, ReadJsonData(&buf, &second))
	assert.Equal(t, []string{"x"}, second)

	assert.Error(t, ReadJsonData(&buf, &second))
}

func TestParseInt(t *testing.T) {
	x, err := ParseInt("12")
	require.NoError(t, err)
	assert.Equal(t, 12, x)
	_, err = ParseInt("twelve")
	assert.Error(t, err)
}
