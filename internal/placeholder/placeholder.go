// Package placeholder implements `${...}`-style string expansion with
// nested placeholders, a default-value separator, and circular
// reference detection (C5). The engine is a pure function: it carries
// no state across calls, and callers supply the lookup capability.
package placeholder

import (
	"fmt"
	"strings"

	"github.com/AtsushiSuzuki/go-ioc/internal/ioerr"
)

// `Lookup` resolves a key to a string value, or reports not-found via
// `ok == false`.
type Lookup func(key string) (string, bool)

// `Engine` holds the configurable delimiters; the zero value is not
// ready to use — call `Default()` for the conventional triple.
type Engine struct {
	Prefix           string
	Suffix           string
	ValueSeparator   string
	IgnoreUnresolved bool
}

// `Default` is the engine with the conventional Spring-style delimiters:
// `${`, `}`, `:`.
func Default() Engine {
	return Engine{Prefix: "${", Suffix: "}", ValueSeparator: ":"}
}

// `Expand` resolves every placeholder in `s` using `lookup`.
//
// A nested placeholder with no value and no default of its own does not
// immediately fail the whole expansion: it is left literal so that an
// enclosing placeholder's default-value separator still gets a chance
// to supply a fallback (see spec §4.5 and the worked example in §8).
// Only once expansion has bottomed out does an unresolved placeholder
// become a hard failure — unless `IgnoreUnresolved` is set, in which
// case it is left in the output as written.
func (this Engine) Expand(s string, lookup Lookup) (string, error) {
	out, err := this.expand(s, lookup, map[string]bool{})
	if err != nil {
		return "", err
	}
	if !this.IgnoreUnresolved && strings.Contains(out, this.Prefix) {
		return "", fmt.Errorf("%w: %q", ioerr.ErrUnresolvedPlaceholder, s)
	}
	return out, nil
}

func (this Engine) expand(s string, lookup Lookup, visiting map[string]bool) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], this.Prefix)
		if start < 0 {
			out.WriteString(s[i:])
			break
		}
		start += i
		out.WriteString(s[i:start])

		end, inner, err := this.findMatchingSuffix(s, start+len(this.Prefix))
		if err != nil {
			// Unterminated placeholder: nothing more to parse, emit the
			// remainder literally.
			out.WriteString(s[start:])
			break
		}

		expandedInner, err := this.expand(inner, lookup, visiting)
		if err != nil {
			return "", err
		}

		resolved, err := this.resolveKey(expandedInner, lookup, visiting)
		if err != nil {
			return "", err
		}
		if resolved == nil {
			out.WriteString(this.Prefix)
			out.WriteString(expandedInner)
			out.WriteString(this.Suffix)
		} else {
			out.WriteString(*resolved)
		}

		i = end + len(this.Suffix)
	}
	return out.String(), nil
}

// findMatchingSuffix scans from `from` (just past an opening prefix) for
// the suffix matching that prefix, tracking nesting depth so that
// `${a${b}}` finds the outer suffix rather than the inner one.
func (this Engine) findMatchingSuffix(s string, from int) (end int, inner string, err error) {
	depth := 1
	i := from
	for i < len(s) {
		if strings.HasPrefix(s[i:], this.Prefix) {
			depth++
			i += len(this.Prefix)
			continue
		}
		if strings.HasPrefix(s[i:], this.Suffix) {
			depth--
			if depth == 0 {
				return i, s[from:i], nil
			}
			i += len(this.Suffix)
			continue
		}
		i++
	}
	return 0, "", fmt.Errorf("%w: unterminated placeholder in %q", ioerr.ErrUnresolvedPlaceholder, s)
}

// resolveKey looks up `key` (already placeholder-expanded as far as
// possible), applying the default-value separator and recursively
// expanding string results. Returns nil (not an error) if the key could
// not be resolved and no default applies at this level — the caller
// decides whether that bubbles up further or becomes a literal/failure.
func (this Engine) resolveKey(key string, lookup Lookup, visiting map[string]bool) (*string, error) {
	if visiting[key] {
		return nil, fmt.Errorf("%w: %q", ioerr.ErrCircularPlaceholder, key)
	}

	if value, ok := lookup(key); ok {
		visiting[key] = true
		defer delete(visiting, key)
		expanded, err := this.expand(value, lookup, visiting)
		if err != nil {
			return nil, err
		}
		return &expanded, nil
	}

	if this.ValueSeparator != "" {
		if idx := strings.Index(key, this.ValueSeparator); idx >= 0 {
			left := key[:idx]
			right := key[idx+len(this.ValueSeparator):]
			resolved, err := this.resolveKey(left, lookup, visiting)
			if err != nil {
				return nil, err
			}
			if resolved != nil {
				return resolved, nil
			}
			expandedRight, err := this.expand(right, lookup, visiting)
			if err != nil {
				return nil, err
			}
			return &expandedRight, nil
		}
	}

	return nil, nil
}
