package logging

import (
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGelfHandler creates a slog handler that ships JSON records to a
// Graylog server over UDP GELF. addr is the host:port of the input.
func NewGelfHandler(addr string, opts *slog.HandlerOptions) (slog.Handler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, err
	}
	// gelf.Writer chunks and compresses each Write into GELF messages,
	// so a plain JSON handler on top is enough.
	return slog.NewJSONHandler(w, opts), nil
}
