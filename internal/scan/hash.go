package scan

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

//nolint:containedctx
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, context.Canceled
	default:
		return cr.reader.Read(p)
	}
}

// hashFile digests a single file and returns the hex-encoded checksum. The
// processed byte volume is accounted onto the work queue.
func (s *Scanner) hashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("(scan-hash) %w", err)
	}
	defer f.Close()

	hasher := blake3.New()

	ctxReader := &contextReader{ctx: ctx, reader: f}

	n, err := io.Copy(hasher, ctxReader)
	if err != nil {
		return "", fmt.Errorf("(scan-hash) %w", err)
	}

	s.queue.AddBytesProcessed(uint64(n))

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
