package mentor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ashureev/crackd/internal/domain"
)

// Dispatcher maps user input to a mentor response by evaluating an ordered
// rule table; the first matching rule wins.
type Dispatcher struct {
	rules   []Rule
	catalog *Catalog
	logger  *slog.Logger
}

// NewDispatcher builds a dispatcher from a catalog.
func NewDispatcher(c *Catalog, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		rules:   BuildRules(c),
		catalog: c,
		logger:  logger,
	}
}

// Catalog returns the catalog the rules were built from.
func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}

// Rules returns the rule names in evaluation order.
func (d *Dispatcher) Rules() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name
	}
	return names
}

// Respond evaluates the rule table against raw. It always returns a
// well-formed response: a rule that panics is skipped and evaluation goes on.
func (d *Dispatcher) Respond(raw string, current *domain.CurrentProblem) domain.Response {
	trimmed := strings.TrimSpace(raw)
	in := Input{
		Raw:        trimmed,
		Normalized: strings.ToLower(trimmed),
		Slug:       extractSlug(trimmed),
		Current:    current.Clone(),
	}

	for _, r := range d.rules {
		if resp, ok := d.try(r, in); ok {
			d.logger.Debug("mentor rule matched", "rule", r.Name)
			return resp
		}
	}
	// Unreachable with a table built by BuildRules, whose fallback always matches.
	return fallbackRule("{input}").Build(in)
}

func (d *Dispatcher) try(r Rule, in Input) (resp domain.Response, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("mentor rule panicked", "rule", r.Name, "panic", p)
			ok = false
		}
	}()
	if r.Match != nil && !r.Match(in) {
		return domain.Response{}, false
	}
	return r.Build(in), true
}

// Dispatch adapts Respond to the fallible responder contract used by the
// conversation controller. It never returns an error.
func (d *Dispatcher) Dispatch(_ context.Context, input string, current *domain.CurrentProblem) (domain.Response, error) {
	return d.Respond(input, current), nil
}
