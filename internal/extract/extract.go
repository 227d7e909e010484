// Package extract turns a loaded HTML document into the plain-text excerpt
// the pipeline analyzes. Extraction strategies are pluggable; the default
// returns all visible text of the document body.
package extract

import (
	"fmt"

	"github.com/pagelens/pagelens/internal/domain"
)

// Result is the output of one extraction. An empty Text is a valid result
// and distinct from an extraction error: a blank page is not the same fault
// as an inaccessible one.
type Result struct {
	Text string
}

// Extractor converts raw HTML into a plain-text excerpt. Implementations must
// not panic across this boundary; internal faults surface as errors.
type Extractor interface {
	Extract(html []byte) (Result, error)
}

// Named returns the extractor registered under name. An empty name selects
// the visible-text default.
func Named(name string) (Extractor, error) {
	switch name {
	case "", "visible":
		return VisibleText{}, nil
	case "readability":
		return Readability{}, nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", name)
	}
}

// safeExtract runs fn and converts a panic into a domain.ExtractionError, so
// a malformed document can never take down the pipeline.
func safeExtract(fn func() (Result, error)) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &domain.ExtractionError{Reason: fmt.Sprintf("extractor panic: %v", r)}
		}
	}()
	return fn()
}
