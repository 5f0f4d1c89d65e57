// Package source opens the trip record file as a decompressed byte stream.
//
// A source is either a local path or an http(s) URL. The compression codec
// is chosen from the file extension: ".gz" is gzip, ".zst" is zstd, anything
// else is read as-is. Both decoders come from github.com/klauspost/compress.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/vvka-141/tripload/pkg/tripload"
)

const readBufferSize = 1 << 20

// Stream is an opened, decompressed source. Close releases both the decoder
// and the underlying file or HTTP body.
type Stream struct {
	io.Reader
	counter *countingReader
	closers []func() error
}

// BytesRead returns the number of compressed bytes consumed so far.
func (s *Stream) BytesRead() int64 { return s.counter.n.Load() }

// TotalBytes returns the compressed size, or -1 when it is unknown.
func (s *Stream) TotalBytes() int64 { return s.counter.total }

// Close closes the decoder and then the underlying reader.
func (s *Stream) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type countingReader struct {
	r     io.Reader
	n     atomic.Int64
	total int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// Opener opens sources. The zero value uses http.DefaultClient.
type Opener struct {
	Client *http.Client
}

// Open opens location and wraps it with the decoder matching its extension.
// Every failure matches tripload.ErrSourceUnavailable, except a zero-byte
// compressed file, which matches tripload.ErrEmptySource.
func (o *Opener) Open(ctx context.Context, location string) (*Stream, error) {
	raw, total, err := o.openRaw(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tripload.ErrSourceUnavailable, err)
	}

	counter := &countingReader{r: raw, total: total}
	s := &Stream{counter: counter, closers: []func() error{raw.Close}}

	buffered := bufio.NewReaderSize(counter, readBufferSize)

	codec := Compression(location)
	if codec != CompressionNone {
		// A zero-byte archive has no header for the decoder to read.
		if _, err := buffered.Peek(1); errors.Is(err, io.EOF) {
			s.Close() //nolint:errcheck
			return nil, fmt.Errorf("%w: %s is empty", tripload.ErrEmptySource, location)
		}
	}

	switch codec {
	case CompressionGzip:
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			s.Close() //nolint:errcheck
			return nil, fmt.Errorf("%w: %s is not valid gzip: %w", tripload.ErrSourceUnavailable, location, err)
		}
		s.Reader = gz
		s.closers = append(s.closers, gz.Close)
	case CompressionZstd:
		zr, err := zstd.NewReader(buffered)
		if err != nil {
			s.Close() //nolint:errcheck
			return nil, fmt.Errorf("%w: %s is not valid zstd: %w", tripload.ErrSourceUnavailable, location, err)
		}
		s.Reader = zr
		s.closers = append(s.closers, func() error { zr.Close(); return nil })
	default:
		s.Reader = buffered
	}

	return s, nil
}

func (o *Opener) openRaw(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	if !IsURL(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, 0, err
		}
		size := int64(-1)
		if fi, err := f.Stat(); err == nil {
			size = fi.Size()
		}
		return f, size, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid source URL %q: %w", location, err)
	}
	req.Header.Set("User-Agent", tripload.DefaultAppName)

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download %s: %w", location, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("download %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}

// Codec identifies a compression format.
type Codec int

const (
	CompressionNone Codec = iota
	CompressionGzip
	CompressionZstd
)

func (c Codec) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// Compression infers the codec from the path component of location,
// ignoring any URL query string.
func Compression(location string) Codec {
	p := location
	if IsURL(location) {
		if u, err := url.Parse(location); err == nil {
			p = u.Path
		}
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// IsURL reports whether location should be fetched over HTTP.
func IsURL(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// TripDataURL builds the monthly yellow taxi file URL under prefix,
// e.g. <prefix>/yellow_tripdata_2021-01.csv.gz.
func TripDataURL(prefix string, year, month int) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("url prefix is empty: %w", tripload.ErrInvalidConfig)
	}
	if month < 1 || month > 12 {
		return "", fmt.Errorf("month %d out of range 1-12: %w", month, tripload.ErrInvalidConfig)
	}
	if year < 2009 || year > 9999 {
		return "", fmt.Errorf("year %d out of range: %w", year, tripload.ErrInvalidConfig)
	}
	return fmt.Sprintf("%s/yellow_tripdata_%04d-%02d.csv.gz", strings.TrimRight(prefix, "/"), year, month), nil
}
