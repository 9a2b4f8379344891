package request

import (
	"fmt"
	"unicode/utf8"

	"github.com/kailas-cloud/mindseye/internal/domain"
	"github.com/kailas-cloud/mindseye/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed text query length in runes.
	MaxQueryLength = 4096
	// MaxValuesPerSet caps the number of sources or kinds in one request.
	MaxValuesPerSet = 32
)

// Request is a validated search query.
type Request struct {
	filters    filter.Filters
	useTrigram bool
}

// New validates search parameters.
// Violations wrap domain.ErrMalformedInput. Time bounds are not parsed here;
// an unparsable bound surfaces as domain.ErrInvalidTimestamp from the search itself.
func New(filters filter.Filters, useTrigram bool) (Request, error) {
	if n := utf8.RuneCountInString(filters.TextQuery()); n > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrMalformedInput, MaxQueryLength)
	}
	if len(filters.Sources) > MaxValuesPerSet {
		return Request{}, fmt.Errorf("%w: too many sources (max %d)", domain.ErrMalformedInput, MaxValuesPerSet)
	}
	if len(filters.Kinds) > MaxValuesPerSet {
		return Request{}, fmt.Errorf("%w: too many kinds (max %d)", domain.ErrMalformedInput, MaxValuesPerSet)
	}
	return Request{filters: filters, useTrigram: useTrigram}, nil
}

// Filters returns the search filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// UseTrigram reports whether trigram pre-narrowing is requested.
func (r *Request) UseTrigram() bool { return r.useTrigram }
