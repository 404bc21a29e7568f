// Package router resolves a free-text operation intent to exactly one
// handler category, or refuses to guess.
//
// Routing fails closed: an intent whose keywords point at more than one
// category is an *AmbiguousRoutingError, never a silent first match. An
// explicit category always wins over inference.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Category is a handler category.
type Category string

const (
	CategoryQuery    Category = "query"
	CategoryRecord   Category = "record"
	CategorySchema   Category = "schema"
	CategoryDiscover Category = "discover"
)

// Categories lists every category in enumeration order.
var Categories = []Category{CategoryQuery, CategoryRecord, CategorySchema, CategoryDiscover}

// DefaultCategory is returned when no keyword matches. It is read-only.
const DefaultCategory = CategoryQuery

var keywords = map[Category][]string{
	CategoryQuery:    {"list", "search", "find", "query", "filter", "count", "get", "fetch", "read"},
	CategoryRecord:   {"create", "update", "delete", "insert", "remove", "record", "records", "upsert", "bulk"},
	CategorySchema:   {"schema", "structure", "field", "fields", "column", "columns"},
	CategoryDiscover: {"discover", "discovery", "mapping", "mappings", "explore", "introspect"},
}

var (
	// ErrUnknownCategory is returned for an explicit category outside the
	// enumeration.
	ErrUnknownCategory = errors.New("unknown handler category")

	// ErrNoHandler is returned by Resolve when no handler is registered
	// for the routed category.
	ErrNoHandler = errors.New("no handler registered for category")
)

// AmbiguousRoutingError reports an intent that matched several categories.
// Supplying any one of Candidates as the explicit category resolves it.
type AmbiguousRoutingError struct {
	Intent     string
	Candidates []Category
}

func (e *AmbiguousRoutingError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = string(c)
	}
	return fmt.Sprintf("ambiguous intent %q matches categories [%s]; supply an explicit category",
		e.Intent, strings.Join(names, ", "))
}

// Request is a routing request.
type Request struct {
	Intent           string `json:"intent"`
	ExplicitCategory string `json:"explicitCategory,omitempty"`
}

// Decision is the result of keyword inference without raising.
type Decision struct {
	Category   Category   `json:"category,omitempty"`
	Candidates []Category `json:"candidates"`
	Ambiguous  bool       `json:"ambiguous"`
	Defaulted  bool       `json:"defaulted"`
}

// Handler performs the work of one category.
type Handler interface {
	Handle(ctx context.Context, req Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (any, error) { return f(ctx, req) }

// Router maps intents to categories and categories to handlers. Handlers
// are fixed at construction, so a Router is safe for concurrent use.
type Router struct {
	handlers map[Category]Handler
}

// Option configures a Router.
type Option func(*Router)

// WithHandler registers h for category c.
func WithHandler(c Category, h Handler) Option {
	return func(r *Router) { r.handlers[c] = h }
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{handlers: map[Category]Handler{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseCategory validates a category token, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownCategory)
}

// Route returns the category for req. An explicit category is returned
// without looking at the intent.
func (r *Router) Route(req Request) (Category, error) {
	return Route(req)
}

// Route is the stateless form of Router.Route.
func Route(req Request) (Category, error) {
	if strings.TrimSpace(req.ExplicitCategory) != "" {
		return ParseCategory(req.ExplicitCategory)
	}
	d := ValidateRouting(req.Intent)
	if d.Ambiguous {
		return "", &AmbiguousRoutingError{Intent: req.Intent, Candidates: d.Candidates}
	}
	return d.Category, nil
}

// ValidateRouting runs keyword inference for intent and reports the
// outcome without raising, for pre-flight checks.
func ValidateRouting(intent string) Decision {
	words := map[string]bool{}
	for _, w := range tokenize(intent) {
		words[w] = true
	}

	d := Decision{Candidates: []Category{}}
	for _, c := range Categories {
		for _, kw := range keywords[c] {
			if words[kw] {
				d.Candidates = append(d.Candidates, c)
				break
			}
		}
	}

	switch len(d.Candidates) {
	case 0:
		d.Category = DefaultCategory
		d.Defaulted = true
	case 1:
		d.Category = d.Candidates[0]
	default:
		d.Ambiguous = true
	}
	return d
}

// Resolve routes req and returns the registered handler for the category.
func (r *Router) Resolve(req Request) (Category, Handler, error) {
	c, err := r.Route(req)
	if err != nil {
		return "", nil, err
	}
	h, ok := r.handlers[c]
	if !ok {
		return c, nil, fmt.Errorf("%s: %w", c, ErrNoHandler)
	}
	return c, h, nil
}

// Dispatch resolves req and invokes the handler.
func (r *Router) Dispatch(ctx context.Context, req Request) (any, error) {
	_, h, err := r.Resolve(req)
	if err != nil {
		return nil, err
	}
	return h.Handle(ctx, req)
}

// Keywords returns the keyword set of a category.
func Keywords(c Category) []string {
	return append([]string(nil), keywords[c]...)
}

// tokenize lower-cases s and splits it into words on anything that is not
// a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
