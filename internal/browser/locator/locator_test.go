package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorRendering(t *testing.T) {
	tests := []struct {
		name     string
		loc      Locator
		selector string
		isXPath  bool
	}{
		{"simple id", ID("loginBtn"), "#loginBtn", false},
		{"id with colon", ID("form:submit"), `[id="form:submit"]`, false},
		{"name", Name("username"), `[name="username"]`, false},
		{"css passthrough", CSS("button.submit"), "button.submit", false},
		{"xpath passthrough", XPath("//div[@id='x']"), "//div[@id='x']", true},
		{"text", Text("Sign in"), `//*[contains(text(), "Sign in")]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.selector, tt.loc.Selector())
			assert.Equal(t, tt.isXPath, tt.loc.IsXPath())
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "id=loginBtn", ID("loginBtn").String())
	assert.Equal(t, "xpath=//a", XPath("//a").String())
}

func TestAlternativesForID(t *testing.T) {
	alts := ID("username").Alternatives()
	assert.Len(t, alts, 4)
	assert.Equal(t, Name("username"), alts[0])
	assert.Equal(t, KindCSS, alts[1].Kind)
	assert.Contains(t, alts[1].Value, "data-testid")
	assert.Equal(t, KindXPath, alts[2].Kind)
	assert.Equal(t, Text("username"), alts[3])
}

func TestAlternativesForXPathStripIndices(t *testing.T) {
	alts := XPath("//table/tr[3]/td[1]").Alternatives()
	assert.Len(t, alts, 1)
	assert.Equal(t, "//table/tr/td", alts[0].Value)

	// An index-free XPath has nothing useful to derive.
	assert.Empty(t, XPath("//div[@id='x']").Alternatives())
}

func TestAlternativesForCSSClass(t *testing.T) {
	alts := CSS("button.btn.primary").Alternatives()
	assert.Len(t, alts, 1)
	assert.Equal(t, `//*[contains(@class, "btn")]`, alts[0].Value)

	assert.Empty(t, CSS("button").Alternatives())
}

func TestXPathQuoting(t *testing.T) {
	assert.Equal(t, `"plain"`, xpathQuote("plain"))
	assert.Equal(t, `'say "hi"'`, xpathQuote(`say "hi"`))
	assert.Contains(t, xpathQuote(`both ' and "`), "concat(")
}
