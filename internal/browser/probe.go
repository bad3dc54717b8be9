package browser

import (
	"encoding/json"
	"fmt"

	"uicheck/internal/scenario"
)

// findElementJS returns the first visible element matching a CSS selector
// or, for text, the innermost visible element whose text matches. Text
// matching mirrors scenario.Locator: whitespace-normalised, case-insensitive
// substring unless exact.
const findElementJS = `(kind, needle, exact) => {
  const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
  const want = exact ? norm(needle) : norm(needle).toLowerCase();
  const matches = (t) => {
    const got = norm(t);
    return exact ? got === want : got.toLowerCase().includes(want);
  };
  const visible = (el) => {
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden') return false;
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  if (kind === 'css') {
    return Array.from(document.querySelectorAll(needle)).find(visible) || null;
  }
  const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE']);
  const all = document.body ? document.body.querySelectorAll('*') : [];
  for (const el of all) {
    if (skip.has(el.tagName) || !matches(el.innerText)) continue;
    if (Array.from(el.children).some((c) => !skip.has(c.tagName) && matches(c.innerText))) continue;
    if (visible(el)) return el;
  }
  return null;
}`

func probeArgs(loc scenario.Locator) string {
	kind, needle := "text", loc.Text
	if loc.Selector != "" {
		kind, needle = "css", loc.Selector
	}
	k, _ := json.Marshal(kind)
	n, _ := json.Marshal(needle)
	return fmt.Sprintf("%s, %s, %t", k, n, loc.Exact)
}

// visibleExpr evaluates to true when a text or CSS locator has a visible
// match.
func visibleExpr(loc scenario.Locator) string {
	return fmt.Sprintf("(%s)(%s) !== null", findElementJS, probeArgs(loc))
}

// clickExpr clicks the element visibleExpr would find and evaluates to
// whether one was found.
func clickExpr(loc scenario.Locator) string {
	return fmt.Sprintf(`(() => {
  const el = (%s)(%s);
  if (!el) return false;
  el.scrollIntoView({block: 'center'});
  el.click();
  return true;
})()`, findElementJS, probeArgs(loc))
}
