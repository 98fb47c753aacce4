package conf

import (
	"bytes"
	"io"
	"os"
)

// NewEnvExpandedReader returns a reader over r with ${VAR} and $VAR
// references replaced by the values of the current environment.
func NewEnvExpandedReader(r io.Reader) io.Reader {
	data, err := io.ReadAll(r)
	if err != nil {
		return &errReader{err}
	}

	expanded := os.ExpandEnv(string(data))
	return bytes.NewBufferString(expanded)
}

type errReader struct {
	err error
}

func (r *errReader) Read(p []byte) (int, error) {
	return 0, r.err
}
