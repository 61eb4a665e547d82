package compression

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/sahib/snap/util/testutil"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompress(t *testing.T) {
	data := testutil.CreateDummyBuf(3 * 1024 * 1024)

	zipped := &bytes.Buffer{}
	n, err := Compress(bytes.NewReader(data), zipped)
	require.Nil(t, err)
	require.Equal(t, int64(len(data)), n)
	require.True(t, zipped.Len() < len(data))

	unzipped := &bytes.Buffer{}
	_, err = Decompress(zipped, unzipped)
	require.Nil(t, err)
	require.Equal(t, data, unzipped.Bytes())
}

func TestNewReaderDetectsFormat(t *testing.T) {
	data := []byte("hello world")

	zipped := &bytes.Buffer{}
	w := NewWriter(zipped)
	_, err := w.Write(data)
	require.Nil(t, err)
	require.Nil(t, w.Close())

	tcs := map[string][]byte{
		"compressed": zipped.Bytes(),
		"plain":      data,
	}

	for name, input := range tcs {
		t.Run(name, func(t *testing.T) {
			r, err := NewReader(bytes.NewReader(input))
			require.Nil(t, err)

			out, err := ioutil.ReadAll(r)
			require.Nil(t, err)
			require.Equal(t, data, out)
		})
	}

	r, err := NewReader(bytes.NewReader(nil))
	require.Nil(t, err)

	out, err := ioutil.ReadAll(r)
	require.Nil(t, err)
	require.Empty(t, out)
}
