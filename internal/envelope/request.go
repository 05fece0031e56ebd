package envelope

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/queryir"
)

// Pagination bounds shared by search and pipeline requests.
const (
	DefaultPage         = 1
	MaxPage             = 20
	DefaultItemsPerPage = 50
	MaxItemsPerPage     = 100
)

// SearchFilter is a find request: a filter document, an optional
// projection and a page window.
type SearchFilter struct {
	Filter       map[string]any `json:"filter"`
	Project      map[string]any `json:"project,omitempty"`
	Page         int            `json:"page"`
	ItemsPerPage int            `json:"itemsPerPage"`
}

// NewSearchFilter returns a request for filter with default paging.
func NewSearchFilter(filter map[string]any) *SearchFilter {
	if filter == nil {
		filter = map[string]any{}
	}
	return &SearchFilter{Filter: filter, Page: DefaultPage, ItemsPerPage: DefaultItemsPerPage}
}

// DecodeSearchFilter decodes a JSON request body. Absent paging fields take
// their defaults; unknown fields are ignored.
func DecodeSearchFilter(data []byte) (*SearchFilter, error) {
	sf := NewSearchFilter(nil)
	if err := decodeBody(data, sf); err != nil {
		return nil, fmt.Errorf("decode search filter: %w", err)
	}
	if sf.Filter == nil {
		sf.Filter = map[string]any{}
	}
	return sf, nil
}

// Validate checks paging bounds, the filter against the operator
// allow-list and the projection values.
func (sf *SearchFilter) Validate() error {
	return sf.ValidateWith(queryir.FilterPolicy)
}

// ValidateWith is Validate with a caller-chosen filter policy, typically
// FilterPolicy with a different depth limit.
func (sf *SearchFilter) ValidateWith(policy queryir.Policy) error {
	if err := checkPaging(sf.Page, sf.ItemsPerPage); err != nil {
		return err
	}
	if err := policy.Check(sf.Filter); err != nil {
		return err
	}
	for _, k := range sortedKeys(sf.Project) {
		if !isProjectionFlag(sf.Project[k]) {
			return fmt.Errorf("project.%s: must be 0, 1 or a boolean, got %s", k, ir.KindOf(sf.Project[k]))
		}
	}
	return nil
}

// Predicate validates the request and converts its filter into a typed
// predicate.
func (sf *SearchFilter) Predicate() (queryir.Predicate, error) {
	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return queryir.ParseFilter(sf.Filter)
}

// PipelineFilter is an aggregation request.
type PipelineFilter struct {
	Pipeline     []any `json:"pipeline"`
	Page         int   `json:"page"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

// NewPipelineFilter returns a request for stages with default paging.
func NewPipelineFilter(stages ...any) *PipelineFilter {
	if stages == nil {
		stages = []any{}
	}
	return &PipelineFilter{Pipeline: stages, Page: DefaultPage, ItemsPerPage: DefaultItemsPerPage}
}

// DecodePipelineFilter decodes a JSON request body.
func DecodePipelineFilter(data []byte) (*PipelineFilter, error) {
	pf := NewPipelineFilter()
	if err := decodeBody(data, pf); err != nil {
		return nil, fmt.Errorf("decode pipeline filter: %w", err)
	}
	if pf.Pipeline == nil {
		pf.Pipeline = []any{}
	}
	return pf, nil
}

// Validate checks paging bounds and that every stage is a mapping that
// passes the stage deny-list.
func (pf *PipelineFilter) Validate() error {
	return pf.ValidateWith(queryir.PipelinePolicy)
}

// ValidateWith is Validate with a caller-chosen pipeline policy.
func (pf *PipelineFilter) ValidateWith(policy queryir.Policy) error {
	if err := checkPaging(pf.Page, pf.ItemsPerPage); err != nil {
		return err
	}
	for i, stage := range pf.Pipeline {
		if _, ok := stage.(map[string]any); !ok {
			return fmt.Errorf("pipeline[%d]: stage must be a mapping, got %s", i, ir.KindOf(stage))
		}
	}
	return policy.Check(pf.Pipeline)
}

func checkPaging(page, perPage int) error {
	if page < 1 || page > MaxPage {
		return fmt.Errorf("page must be between 1 and %d, got %d", MaxPage, page)
	}
	if perPage < 1 || perPage > MaxItemsPerPage {
		return fmt.Errorf("itemsPerPage must be between 1 and %d, got %d", MaxItemsPerPage, perPage)
	}
	return nil
}

// isProjectionFlag accepts only include (1, true) or exclude (0, false);
// other numbers are rejected rather than treated as truthy.
func isProjectionFlag(v any) bool {
	if _, ok := v.(bool); ok {
		return true
	}
	n, ok := ir.AsInt(v)
	return ok && (n == 0 || n == 1)
}

// decodeBody decodes JSON into dst with numbers kept as json.Number, the
// same representation ir.DecodeRaw produces for raw trees.
func decodeBody(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dst)
}
