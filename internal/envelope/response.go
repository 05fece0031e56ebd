package envelope

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/resolver"
)

// Defaults of a response body that omits them.
const (
	DefaultStatus  = "not completed"
	DefaultMessage = "Empty results"
)

var (
	// ErrNoResults is returned when a response reports zero items.
	ErrNoResults = errors.New("no results")
	// ErrUnknownItemClass is returned when a response names an item class
	// that is neither a record type nor a dictionary.
	ErrUnknownItemClass = errors.New("unknown item class")
)

// ServerResponse is a page of query results.
type ServerResponse struct {
	CurrentPage  int    `json:"currentPage"`
	TotalPages   int    `json:"totalPages"`
	ItemsPerPage int    `json:"itemsPerPage"`
	TotalItems   int    `json:"totalItems"`
	ItemClass    string `json:"itemClass"`
	Filter       any    `json:"filter,omitempty"`
	Items        []any  `json:"items"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

// NewServerResponse returns an empty response with default fields.
func NewServerResponse() *ServerResponse {
	return &ServerResponse{
		ItemsPerPage: DefaultItemsPerPage,
		Items:        []any{},
		Status:       DefaultStatus,
		Message:      DefaultMessage,
	}
}

// DecodeResponse decodes a JSON response body, keeping numbers inside items
// as json.Number so integer and float fields resolve exactly.
func DecodeResponse(data []byte) (*ServerResponse, error) {
	res := NewServerResponse()
	if err := decodeBody(data, res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if res.Items == nil {
		res.Items = []any{}
	}
	return res, nil
}

// IsDict reports whether class names untyped dictionary items, which pass
// through without resolution.
func IsDict(class string) bool {
	return class == "dict" || class == "Dict"
}

// DecodeItems resolves every item as the record type named by ItemClass.
// The first item that fails aborts the whole page.
func (r *ServerResponse) DecodeItems(res *resolver.Resolver) ([]ir.Object, error) {
	if r.TotalItems == 0 {
		return nil, fmt.Errorf("%w for %s with filter %v", ErrNoResults, r.ItemClass, r.Filter)
	}

	if IsDict(r.ItemClass) {
		out := make([]ir.Object, 0, len(r.Items))
		for i, item := range r.Items {
			v, err := ir.FromRaw(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			obj, ok := v.(ir.Object)
			if !ok {
				return nil, fmt.Errorf("item %d: expected a mapping, got %s", i, ir.KindOf(v))
			}
			out = append(out, obj)
		}
		return out, nil
	}

	if _, ok := res.Graph().Schema(r.ItemClass); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemClass, r.ItemClass)
	}
	out := make([]ir.Object, 0, len(r.Items))
	for i, item := range r.Items {
		obj, err := res.Resolve(r.ItemClass, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
