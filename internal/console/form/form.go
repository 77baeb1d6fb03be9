// Package form validates submitted console forms with go-playground/validator and reduces
// the result to the single message shown to the user.
package form

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Messages maps a failing field to the message shown. Keys are tried most specific first:
// "Namespace.tag" (e.g. "LineItems[0].Quantity.gt" with indexes dropped as "LineItems.Quantity.gt"),
// "Namespace", "Field.tag", "Field", then each enclosing namespace ("LineItems.Quantity" → "LineItems").
// Default is used when nothing matches.
type Messages struct {
	Fields  map[string]string
	Default string
}

// Check validates v and returns "" when it is valid, otherwise one message for the first failing field.
func Check(v any, m Messages) string {
	err := instance().Struct(v)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return m.Default
	}
	fe := verrs[0]
	ns := stripIndexes(trimRoot(fe.StructNamespace()))
	for _, key := range []string{ns + "." + fe.Tag(), ns, fe.StructField() + "." + fe.Tag(), fe.StructField()} {
		if msg, ok := m.Fields[key]; ok {
			return msg
		}
	}
	// Errors inside a dived slice or nested struct fall back to the enclosing field.
	for parent := parentOf(ns); parent != ""; parent = parentOf(parent) {
		for _, key := range []string{parent + "." + fe.Tag(), parent} {
			if msg, ok := m.Fields[key]; ok {
				return msg
			}
		}
	}
	return m.Default
}

func parentOf(ns string) string {
	if i := strings.LastIndexByte(ns, '.'); i >= 0 {
		return ns[:i]
	}
	return ""
}

// Trim returns the trimmed form value of key.
func Trim(values map[string][]string, key string) string {
	if vs := values[key]; len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// Int64 parses a form value; empty or invalid input yields 0 so that gt=0 rules reject it.
func Int64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Float parses a form value; empty or invalid input yields 0.
func Float(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func stripIndexes(ns string) string {
	var b strings.Builder
	depth := 0
	for _, r := range ns {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
