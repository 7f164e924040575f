// Package document maps host documents, JSON records addressed by field
// paths such as "system.abilities.str.point", to and from the character
// model.
//
// Stored numeric fields are coerced leniently: null and missing fields read
// as zero, numeric strings are parsed, and anything else reads as zero and is
// logged as a CoercionWarning.
package document

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrDerivedField is returned when an update targets a field the resolver
// computes.
var ErrDerivedField = errors.New("field is derived")

// ErrImmutableField is returned when an update targets an identity field or a
// path outside the writable document surface.
var ErrImmutableField = errors.New("field is not writable")

// CoercionWarning records a stored field that was not numeric and was read
// as zero.
type CoercionWarning struct {
	Path string
	Raw  string
}

func (w *CoercionWarning) Error() string {
	return fmt.Sprintf("non-numeric value %s at %s coerced to 0", w.Raw, w.Path)
}

// Decoder reads host documents into the character model.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder returns a Decoder that logs coercion warnings to logger.
//
// Precondition: logger must be non-nil.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		panic("document.NewDecoder: logger must not be nil")
	}
	return &Decoder{logger: logger}
}

func (d *Decoder) warn(w *CoercionWarning) {
	d.logger.Warn("numeric coercion", zap.String("path", w.Path), zap.String("raw", w.Raw))
}

// escape quotes gjson/sjson path metacharacters in a single key.
func escape(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func join(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}
