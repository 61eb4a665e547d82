// Package compression wraps the snappy stream format used for metadata dumps.
package compression

import (
	"bufio"
	"bytes"
	"io"

	"github.com/golang/snappy"
)

// streamMagic is the stream identifier chunk every snappy stream starts with.
var streamMagic = []byte("\xff\x06\x00\x00sNaPpY")

// Compress copies `src` to `dst`, compressing it on the way.
func Compress(src io.Reader, dst io.Writer) (int64, error) {
	w := snappy.NewBufferedWriter(dst)
	n, err := io.Copy(w, src)
	if err != nil {
		w.Close()
		return n, err
	}

	return n, w.Close()
}

// Decompress copies the compressed stream in `src` to `dst`.
func Decompress(src io.Reader, dst io.Writer) (int64, error) {
	return io.Copy(dst, snappy.NewReader(src))
}

// NewReader returns a reader that decompresses `r` if it is a snappy
// stream and passes it through unchanged otherwise.
func NewReader(r io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(r)
	header, err := buffered.Peek(len(streamMagic))
	if err != nil && err != io.EOF {
		return nil, err
	}

	if bytes.Equal(header, streamMagic) {
		return snappy.NewReader(buffered), nil
	}

	return buffered, nil
}

// NewWriter returns a new compression Writer.
// Close() it to flush the last block.
func NewWriter(w io.Writer) io.WriteCloser {
	return snappy.NewBufferedWriter(w)
}
