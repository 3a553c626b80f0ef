package legis

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds a unit of work can end in.
var (
	ErrExtraction       = errors.New("text extraction failed")
	ErrNoText           = fmt.Errorf("%w: document has no text", ErrExtraction)
	ErrMetadataNotFound = errors.New("bill metadata not found")
	ErrEmbedding        = errors.New("embedding failed")
	ErrStore            = errors.New("vector store write failed")
	ErrConfiguration    = errors.New("configuration error")
)

// ErrorKind is the short, stable name of a failure kind used in run reports
// and metric labels.
type ErrorKind string

const (
	KindExtraction       ErrorKind = "extraction"
	KindMetadataNotFound ErrorKind = "metadata_not_found"
	KindEmbedding        ErrorKind = "embedding"
	KindStore            ErrorKind = "store"
	KindConfiguration    ErrorKind = "configuration"
	KindUnknown          ErrorKind = "unknown"
)

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindExtraction, ErrExtraction},
	{KindMetadataNotFound, ErrMetadataNotFound},
	{KindEmbedding, ErrEmbedding},
	{KindStore, ErrStore},
	{KindConfiguration, ErrConfiguration},
}

// Sentinel returns the sentinel error for k, or nil for KindUnknown.
func (k ErrorKind) Sentinel() error {
	for _, ks := range kindSentinels {
		if ks.kind == k {
			return ks.err
		}
	}
	return nil
}

// KindOf classifies err. Errors that wrap none of the sentinels are KindUnknown.
func KindOf(err error) ErrorKind {
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindUnknown
}

// UnitError ties a failure to the unit of work (bill or document) it ended.
type UnitError struct {
	Kind ErrorKind
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Unit, e.Kind, e.Err)
}

// Unwrap exposes both the kind's sentinel and the underlying cause.
func (e *UnitError) Unwrap() []error {
	if s := e.Kind.Sentinel(); s != nil && !errors.Is(e.Err, s) {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}

// NewUnitError wraps err for unit with the given kind.
func NewUnitError(kind ErrorKind, unit string, err error) *UnitError {
	return &UnitError{Kind: kind, Unit: unit, Err: err}
}

// Configf builds a configuration error.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
