package scroll

// measureScript reports what is scrolled around the trigger: the nearest
// scrollable ancestor with a non-zero offset, else the window.
const measureScript = `(selector) => {
  const selectorFor = (el) => {
    if (el.id) return '#' + CSS.escape(el.id);
    const parts = [];
    for (let n = el; n && n.nodeType === 1 && n !== document.documentElement; n = n.parentElement) {
      if (n.id) { parts.unshift('#' + CSS.escape(n.id)); break; }
      let i = 1;
      for (let s = n.previousElementSibling; s; s = s.previousElementSibling) if (s.tagName === n.tagName) i++;
      parts.unshift(n.tagName.toLowerCase() + ':nth-of-type(' + i + ')');
    }
    return parts.join(' > ');
  };
  const trigger = selector ? document.querySelector(selector) : null;
  for (let n = trigger ? trigger.parentElement : null; n && n !== document.body && n !== document.documentElement; n = n.parentElement) {
    const style = getComputedStyle(n);
    if (/(auto|scroll|overlay)/.test(style.overflowY) && n.scrollHeight > n.clientHeight && n.scrollTop > 0) {
      return { value: n.scrollTop, anchorKind: 'element', elementSelector: selectorFor(n) };
    }
  }
  return { value: window.scrollY || document.documentElement.scrollTop || 0, anchorKind: 'viewport' };
}`

// contentCountScript counts rendered content items.
const contentCountScript = `(selector) => selector ? document.querySelectorAll(selector).length : 1`

// stepScript advances the anchor toward target by at most step pixels and
// returns the resulting offset, or null when the anchor element is gone.
const stepScript = `({ anchorKind, selector, target, step }) => {
  let el = null;
  if (anchorKind === 'element') {
    el = document.querySelector(selector);
    if (!el) return null;
  }
  const current = el ? el.scrollTop : (window.scrollY || document.documentElement.scrollTop || 0);
  const next = current < target ? Math.min(target, current + step) : target;
  if (el) el.scrollTop = next;
  else window.scrollTo(0, next);
  return { top: el ? el.scrollTop : (window.scrollY || document.documentElement.scrollTop || 0) };
}`
