// Package route maps notification types to console destinations.
package route

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

var (
	ErrUnroutable   = errors.New("route: no destination for message type")
	ErrMissingField = errors.New("route: message data misses a required field")
)

// Route is a URL template with {field} placeholders filled from message.data.
type Route struct {
	Template string
	Fields   []string
}

// Defaults is the built-in destination table, one entry per model.MessageTypes.
var Defaults = map[model.MessageType]Route{
	model.NewOrder:    {Template: "/orders/{order_id}", Fields: []string{"order_id"}},
	model.NewPayment:  {Template: "/payments/{payment_id}", Fields: []string{"payment_id"}},
	model.NewDelivery: {Template: "/deliveries/{delivery_id}", Fields: []string{"delivery_id"}},
	model.NewReview:   {Template: "/reviews?product_id={product_id}", Fields: []string{"product_id"}},
	model.NewQuestion: {Template: "/questions?product_id={product_id}", Fields: []string{"product_id"}},
}

// Table resolves destinations. Templates may be swapped at runtime (config reload).
type Table struct {
	mu     sync.RWMutex
	routes map[model.MessageType]Route
}

func NewTable(overrides map[model.MessageType]string) *Table {
	t := &Table{}
	t.Reload(overrides)
	return t
}

// Reload rebuilds the table from Defaults plus template overrides.
// Required fields of an override are derived from its placeholders.
func (t *Table) Reload(overrides map[model.MessageType]string) {
	routes := make(map[model.MessageType]Route, len(Defaults)+len(overrides))
	for typ, r := range Defaults {
		routes[typ] = r
	}
	for typ, tpl := range overrides {
		if strings.TrimSpace(tpl) == "" {
			continue
		}
		routes[typ] = Route{Template: tpl, Fields: placeholders(tpl)}
	}

	t.mu.Lock()
	t.routes = routes
	t.mu.Unlock()
}

// Resolve builds the destination URL for a message.
func (t *Table) Resolve(m model.Message) (string, error) {
	t.mu.RLock()
	r, ok := t.routes[m.Type]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnroutable, m.Type)
	}

	data := map[string]any{}
	if len(m.Data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(m.Data))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return "", fmt.Errorf("route: decode data of message %d: %w", m.ID, err)
		}
	}

	values := make(map[string]string, len(r.Fields))
	for _, field := range r.Fields {
		v, ok := data[field]
		if !ok || v == nil {
			return "", fmt.Errorf("%w: %s (type %s)", ErrMissingField, field, m.Type)
		}
		values[field] = fmt.Sprint(v)
	}
	return expand(r.Template, values), nil
}

// expand fills placeholders, path-escaping those before the query and
// query-escaping the rest. Unknown placeholders are left as written.
func expand(tpl string, values map[string]string) string {
	var b strings.Builder
	inQuery := false
	for {
		start := strings.IndexByte(tpl, '{')
		end := -1
		if start >= 0 {
			end = strings.IndexByte(tpl[start:], '}')
		}
		if start < 0 || end < 0 {
			b.WriteString(tpl)
			return b.String()
		}

		lit := tpl[:start]
		if strings.ContainsAny(lit, "?#") {
			inQuery = true
		}
		b.WriteString(lit)

		token := tpl[start : start+end+1]
		switch v, ok := values[token[1:len(token)-1]]; {
		case !ok:
			b.WriteString(token)
		case inQuery:
			b.WriteString(url.QueryEscape(v))
		default:
			b.WriteString(url.PathEscape(v))
		}
		tpl = tpl[start+end+1:]
	}
}

func placeholders(tpl string) []string {
	var fields []string
	for {
		start := strings.IndexByte(tpl, '{')
		if start < 0 {
			return fields
		}
		end := strings.IndexByte(tpl[start:], '}')
		if end < 0 {
			return fields
		}
		fields = append(fields, tpl[start+1:start+end])
		tpl = tpl[start+end+1:]
	}
}

// Overrides maps config keys onto known message types, ignoring case.
// Unknown keys are returned separately so callers can log them.
func Overrides(cfg map[string]string) (map[model.MessageType]string, []string) {
	out := make(map[model.MessageType]string, len(cfg))
	var unknown []string
	for key, tpl := range cfg {
		matched := false
		for _, typ := range model.MessageTypes {
			if strings.EqualFold(key, string(typ)) {
				out[typ] = tpl
				matched = true
				break
			}
		}
		if !matched {
			unknown = append(unknown, key)
		}
	}
	return out, unknown
}
