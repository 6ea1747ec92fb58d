// Package locator models symbolic element locators: a tagged value describing
// how to find an element, independent of any live browser handle. Locators are
// immutable once constructed; many locators may map to the same live element
// across retries.
package locator

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies the lookup strategy a Locator encodes.
type Kind string

const (
	KindID    Kind = "id"
	KindName  Kind = "name"
	KindCSS   Kind = "css"
	KindXPath Kind = "xpath"
	KindText  Kind = "text"
)

// Locator identifies how to find a UI element.
type Locator struct {
	Kind  Kind
	Value string
}

func ID(v string) Locator    { return Locator{Kind: KindID, Value: v} }
func Name(v string) Locator  { return Locator{Kind: KindName, Value: v} }
func CSS(v string) Locator   { return Locator{Kind: KindCSS, Value: v} }
func XPath(v string) Locator { return Locator{Kind: KindXPath, Value: v} }
func Text(v string) Locator  { return Locator{Kind: KindText, Value: v} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Kind, l.Value)
}

// IsZero reports whether the locator carries no strategy.
func (l Locator) IsZero() bool { return l.Kind == "" && l.Value == "" }

// IsXPath reports whether Selector renders an XPath expression rather than a
// CSS selector, which determines the query mode handed to the browser.
func (l Locator) IsXPath() bool {
	return l.Kind == KindXPath || l.Kind == KindText
}

var cssIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Selector renders the locator as a CSS selector or XPath expression.
func (l Locator) Selector() string {
	switch l.Kind {
	case KindID:
		if cssIdent.MatchString(l.Value) {
			return "#" + l.Value
		}
		return fmt.Sprintf(`[id=%s]`, cssQuote(l.Value))
	case KindName:
		return fmt.Sprintf(`[name=%s]`, cssQuote(l.Value))
	case KindCSS:
		return l.Value
	case KindXPath:
		return l.Value
	case KindText:
		return fmt.Sprintf(`//*[contains(text(), %s)]`, xpathQuote(l.Value))
	default:
		return l.Value
	}
}

// Alternatives derives secondary locators to try when the original fails to
// resolve. The derivation is structural (switching on Kind), deliberately not
// a contract: it is one heuristic fallback among several, ordered from most
// to least specific.
func (l Locator) Alternatives() []Locator {
	switch l.Kind {
	case KindID:
		return []Locator{
			Name(l.Value),
			CSS(fmt.Sprintf(`[data-testid=%s]`, cssQuote(l.Value))),
			XPath(fmt.Sprintf(`//*[@id=%s or @name=%s or contains(@class, %s)]`,
				xpathQuote(l.Value), xpathQuote(l.Value), xpathQuote(l.Value))),
			Text(l.Value),
		}
	case KindName:
		return []Locator{
			ID(l.Value),
			CSS(fmt.Sprintf(`[data-testid=%s]`, cssQuote(l.Value))),
		}
	case KindCSS:
		if cls, ok := firstClass(l.Value); ok {
			return []Locator{
				XPath(fmt.Sprintf(`//*[contains(@class, %s)]`, xpathQuote(cls))),
			}
		}
		return nil
	case KindXPath:
		if stripped := stripIndices(l.Value); stripped != l.Value {
			return []Locator{XPath(stripped)}
		}
		return nil
	case KindText:
		return []Locator{
			CSS(fmt.Sprintf(`[aria-label=%s]`, cssQuote(l.Value))),
		}
	default:
		return nil
	}
}

var xpathIndex = regexp.MustCompile(`\[\d+\]`)

// stripIndices removes positional predicates like div[2] from an XPath.
func stripIndices(xpath string) string {
	return xpathIndex.ReplaceAllString(xpath, "")
}

// firstClass extracts the first class name from a simple CSS selector like
// ".btn.primary" or "button.submit".
func firstClass(css string) (string, bool) {
	idx := strings.IndexByte(css, '.')
	if idx < 0 {
		return "", false
	}
	rest := css[idx+1:]
	end := strings.IndexAny(rest, ". >:[#,")
	if end == 0 {
		return "", false
	}
	if end > 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

func cssQuote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

// xpathQuote wraps a value for use inside an XPath expression. Values with
// both quote styles fall back to concat().
func xpathQuote(v string) string {
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	parts := strings.Split(v, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
