// File: internal/network/compression.go
package network

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

var (
	gzipPool   = sync.Pool{New: func() interface{} { return new(gzip.Reader) }}
	brotliPool = sync.Pool{New: func() interface{} { return brotli.NewReader(nil) }}
)

// decompressor wraps a response body and returns its pooled reader on Close.
type decompressor struct {
	io.Reader
	body    io.ReadCloser
	release func()
}

func (d *decompressor) Close() error {
	if d.release != nil {
		d.release()
		d.release = nil
	}
	return d.body.Close()
}

// Decompress advertises gzip, deflate and brotli on outgoing requests and transparently
// decodes responses that use them. The API servers compress large model lists
// and summaries; bodies with other encodings pass through untouched.
type Decompress struct {
	Next http.RoundTripper
}

func (d *Decompress) RoundTrip(req *http.Request) (*http.Response, error) {
	next := d.Next
	if next == nil {
		next = http.DefaultTransport
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip, deflate")
	}

	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := decode(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return resp, nil
}

func decode(resp *http.Response) error {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	var body *decompressor
	switch encoding {
	case "", "identity":
		return nil
	case "gzip":
		zr := gzipPool.Get().(*gzip.Reader)
		if err := zr.Reset(resp.Body); err != nil {
			gzipPool.Put(zr)
			if errors.Is(err, io.EOF) {
				// Empty gzip body.
				_ = resp.Body.Close()
				resp.Body = http.NoBody
				break
			}
			return err
		}
		body = &decompressor{Reader: zr, body: resp.Body, release: func() { gzipPool.Put(zr) }}
	case "deflate":
		zr, err := tryDeflate(resp.Body)
		if err != nil {
			return err
		}
		body = &decompressor{Reader: zr, body: resp.Body, release: func() { _ = zr.Close() }}
	case "br":
		br := brotliPool.Get().(*brotli.Reader)
		if err := br.Reset(resp.Body); err != nil {
			brotliPool.Put(br)
			return err
		}
		body = &decompressor{Reader: br, body: resp.Body, release: func() { brotliPool.Put(br) }}
	default:
		return nil
	}

	if body != nil {
		resp.Body = body
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// tryDeflate reads zlib-wrapped deflate, falling back to raw deflate for
// servers that omit the zlib header.
func tryDeflate(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header[0], header[1]) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
