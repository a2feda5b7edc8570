package executor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding replaces any caller value; every coding listed here is
// decoded before the body is recorded.
const acceptEncoding = "gzip, deflate, zstd"

// decodedBody wraps resp.Body with the decompressor named by Content-Encoding.
// decoded is false when the coding is one the relay cannot undo; the body is
// then returned as sent and the header kept.
func decodedBody(resp *http.Response) (r io.Reader, closeFn func(), decoded bool, err error) {
	coding := strings.ToLower(strings.TrimSpace(strings.Join(resp.Header.Values("Content-Encoding"), ",")))
	nop := func() {}

	switch coding {
	case "", "identity":
		return resp.Body, nop, false, nil
	case "gzip", "x-gzip", "deflate", "zstd":
	default:
		return resp.Body, nop, false, nil
	}

	body := bufio.NewReader(resp.Body)
	if _, err := body.Peek(1); errors.Is(err, io.EOF) {
		// HEAD, 204 and friends carry the header without a payload.
		return body, nop, true, nil
	}

	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, nop, false, fmt.Errorf("decoding gzip body: %w", err)
		}
		return zr, func() { _ = zr.Close() }, true, nil

	case "deflate":
		// The registered coding is zlib-wrapped; some servers send raw deflate.
		if head, _ := body.Peek(2); isZlibHeader(head) {
			zr, err := zlib.NewReader(body)
			if err != nil {
				return nil, nop, false, fmt.Errorf("decoding deflate body: %w", err)
			}
			return zr, func() { _ = zr.Close() }, true, nil
		}
		fr := flate.NewReader(body)
		return fr, func() { _ = fr.Close() }, true, nil

	default: // zstd
		zr, err := zstd.NewReader(body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nop, false, fmt.Errorf("decoding zstd body: %w", err)
		}
		return zr, zr.Close, true, nil
	}
}

func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

// dropEncodingHeaders removes headers that describe the wire form once the
// body has been decoded.
func dropEncodingHeaders(h map[string]string) {
	delete(h, "content-encoding")
	delete(h, "content-length")
}
