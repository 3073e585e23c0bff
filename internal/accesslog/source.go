package accesslog

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// StdinName is the path that selects standard input.
const StdinName = "-"

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// OpenFiles opens every path for reading. Compressed inputs (gzip, zstd) are
// detected from their leading bytes and decompressed on the fly. The returned
// close function releases everything that was opened. On error nothing is
// left open.
func OpenFiles(paths []string, stdin io.Reader) ([]Source, func() error, error) {
	var closers []io.Closer
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i].Close())
		}
		closers = nil
		return errors.Join(errs...)
	}

	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		var raw io.Reader
		if path == StdinName {
			if stdin == nil {
				stdin = os.Stdin
			}
			raw = stdin
		} else {
			f, err := os.Open(path)
			if err != nil {
				_ = closeAll()
				return nil, nil, &SourceError{Source: path, Err: err}
			}
			closers = append(closers, f)
			raw = f
		}

		r, closer, err := decompress(raw)
		if err != nil {
			_ = closeAll()
			return nil, nil, &SourceError{Source: path, Err: err}
		}
		if closer != nil {
			closers = append(closers, closer)
		}

		sources = append(sources, Source{Name: path, Reader: r})
	}

	return sources, closeAll, nil
}

func decompress(r io.Reader) (io.Reader, io.Closer, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, zstdCloser{zr}, nil
	}

	return br, nil, nil
}

// zstd.Decoder.Close has no error result.
type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}
