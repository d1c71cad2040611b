package dispatch

import (
	"bytes"
	"io"
)

// CopyToOwnedBuffer copies a stream to an in-memory reader.
//
// The response stream is closed at the end of every Dispatch call, so any
// reads from it must be completed before then. Handlers that need to return
// an undecoded stream to their caller use this helper, so all of them share
// one code path. The input stream is read to the end.
func CopyToOwnedBuffer(stream io.Reader) (*bytes.Reader, error) {
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
