package milter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenReadCommandRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCommand(&buf, Rcpt, []string{"<alice@example.com>", "<bob@example.com>"}, nil)
	require.NoError(t, err)

	cmd, err := ReadCommand(&buf)
	require.NoError(t, err)
	require.Equal(t, byte(Rcpt), cmd.Code)
	require.Equal(t, []string{"<alice@example.com>", "<bob@example.com>"}, UnpackStrings(cmd.Payload))
}

func TestWriteCommandWithRawData(t *testing.T) {
	var buf bytes.Buffer
	data := []byte{0, 0, 0, 6, 0, 0, 0, 12, 0, 0, 0, 0}
	require.NoError(t, WriteCommand(&buf, OptNeg, nil, data))

	cmd, err := ReadCommand(&buf)
	require.NoError(t, err)
	require.Equal(t, byte(OptNeg), cmd.Code)
	require.Equal(t, data, cmd.Payload)
}

func TestReadCommandEOFOnEmptyStream(t *testing.T) {
	_, err := ReadCommand(&bytes.Buffer{})
	require.Error(t, err)
}

func TestUnpackStringsDropsTrailingEmpty(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, UnpackStrings([]byte("a\x00b\x00")))
	require.Equal(t, []string{}, UnpackStrings(nil))
}
