package dom

import (
	"fmt"

	json "github.com/json-iterator/go"
)

// resolveFn is shared by every script. It returns the first element any of the
// locators resolves, tagged with the index of the locator that found it.
const resolveFn = `function resolve(locators) {
	for (let i = 0; i < locators.length; i++) {
		const l = locators[i];
		let el = null;
		for (const cand of document.querySelectorAll(l.selector)) {
			if (l.text && (cand.textContent || '').trim() !== l.text) continue;
			el = cand;
			break;
		}
		if (el && l.closest) el = el.closest(l.closest);
		if (el) return { el: el, index: i };
	}
	return null;
}`

const controlFn = `function(locators) {
	` + resolveFn + `
	const hit = resolve(locators);
	if (!hit) return { found: false, disabled: false, strategy: -1 };
	const disabled = !!hit.el.disabled || hit.el.getAttribute('aria-disabled') === 'true';
	return { found: true, disabled: disabled, strategy: hit.index };
}`

const clickFn = `function(locators) {
	` + resolveFn + `
	const hit = resolve(locators);
	if (!hit) return false;
	hit.el.click();
	return true;
}`

const innerTextsFn = `function(selector) {
	return Array.from(document.querySelectorAll(selector)).map(el => el.innerText || '');
}`

const existsFn = `function(selector) {
	return document.querySelector(selector) !== null;
}`

const focusFn = `function(selector) {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.focus();
	return true;
}`

// pasteFn rebuilds each data URL as a File and dispatches a single paste event
// carrying all of them. It returns the number of files attached.
const pasteFn = `function(args) {
	const el = document.querySelector(args.selector);
	if (!el) return -1;
	const dt = new DataTransfer();
	for (const f of args.files) {
		const parts = f.dataUrl.split(',');
		const mime = (parts[0].match(/:(.*?);/) || [null, 'image/png'])[1];
		const bin = atob(parts[1] || '');
		const buf = new Uint8Array(bin.length);
		for (let i = 0; i < bin.length; i++) buf[i] = bin.charCodeAt(i);
		dt.items.add(new File([buf], f.name, { type: mime }));
	}
	el.dispatchEvent(new ClipboardEvent('paste', { clipboardData: dt, bubbles: true, cancelable: true }));
	return dt.files.length;
}`

func invoke(fn string, arg interface{}) (string, error) {
	raw, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("failed to encode script argument: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", fn, raw), nil
}

// ControlScript evaluates to a Control for the first locator that resolves.
func ControlScript(locators ...Locator) (string, error) {
	return invoke(controlFn, nonNil(locators))
}

// ClickScript clicks the first element any locator resolves and evaluates to
// whether one was found.
func ClickScript(locators ...Locator) (string, error) {
	return invoke(clickFn, nonNil(locators))
}

// InnerTextsScript evaluates to the rendered text of every match of selector.
func InnerTextsScript(selector string) (string, error) {
	return invoke(innerTextsFn, selector)
}

// ExistsScript evaluates to whether selector matches anything.
func ExistsScript(selector string) (string, error) {
	return invoke(existsFn, selector)
}

// FocusScript focuses the first match of selector.
func FocusScript(selector string) (string, error) {
	return invoke(focusFn, selector)
}

// PasteScript dispatches one paste event with files on the first match of
// selector. It evaluates to -1 when the element is missing.
func PasteScript(selector string, files []PasteFile) (string, error) {
	if files == nil {
		files = []PasteFile{}
	}
	return invoke(pasteFn, struct {
		Selector string      `json:"selector"`
		Files    []PasteFile `json:"files"`
	}{selector, files})
}

func nonNil(l []Locator) []Locator {
	if l == nil {
		return []Locator{}
	}
	return l
}
