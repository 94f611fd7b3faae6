// Package dom describes page elements independently of the engine that
// resolves them. A live tab evaluates locators with the scripts built here;
// the offline page resolves them with goquery.
package dom

import (
	"fmt"
	"strings"
)

// Locator finds one element: the first match of Selector (in document order)
// whose trimmed text equals Text when Text is set, then its nearest ancestor
// (or itself) matching Closest when Closest is set.
type Locator struct {
	Selector string `json:"selector"`
	Text     string `json:"text,omitempty"`
	Closest  string `json:"closest,omitempty"`
}

// Q is shorthand for a plain selector locator.
func Q(selector string) Locator { return Locator{Selector: selector} }

// Within returns a copy of l that climbs to the closest ancestor matching sel.
func (l Locator) Within(sel string) Locator {
	l.Closest = sel
	return l
}

// WithText returns a copy of l that only accepts elements with the given text.
func (l Locator) WithText(text string) Locator {
	l.Text = text
	return l
}

// Validate reports locators that can never match.
func (l Locator) Validate() error {
	if strings.TrimSpace(l.Selector) == "" {
		return fmt.Errorf("locator has an empty selector")
	}
	return nil
}

func (l Locator) String() string {
	var b strings.Builder
	b.WriteString(l.Selector)
	if l.Text != "" {
		fmt.Fprintf(&b, " text=%q", l.Text)
	}
	if l.Closest != "" {
		b.WriteString(" -> " + l.Closest)
	}
	return b.String()
}

// Control is the observed state of an interactive element.
type Control struct {
	// Found is false when no locator resolved.
	Found bool `json:"found"`
	// Disabled covers both the disabled property and aria-disabled="true".
	Disabled bool `json:"disabled"`
	// Strategy is the index of the locator that resolved, or -1.
	Strategy int `json:"strategy"`
}

// Enabled reports whether the control exists and accepts clicks.
func (c Control) Enabled() bool { return c.Found && !c.Disabled }

// Missing is the zero observation.
var Missing = Control{Strategy: -1}

// PasteFile is one file carried by a synthesized paste event.
type PasteFile struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}
