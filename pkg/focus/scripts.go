package focus

// ExpandScript clicks the first visible collapsed placeholder.
const ExpandScript = `(selectors) => {
  const visible = (el) => {
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  };
  for (const sel of selectors) {
    const el = Array.from(document.querySelectorAll(sel)).find(visible);
    if (!el) continue;
    el.scrollIntoView({ block: 'center', inline: 'nearest' });
    const r = el.getBoundingClientRect();
    const x = r.left + r.width / 2;
    const y = r.top + r.height / 2;
    const opts = { bubbles: true, cancelable: true, view: window, clientX: x, clientY: y, button: 0 };
    el.dispatchEvent(new MouseEvent('mousedown', opts));
    el.dispatchEvent(new MouseEvent('mouseup', opts));
    el.dispatchEvent(new MouseEvent('click', opts));
    return { selector: sel, x, y };
  }
  return null;
}`

// LocateScript finds the first composer and scrolls it into view.
const LocateScript = `(selectors) => {
  for (const sel of selectors) {
    const el = document.querySelector(sel);
    if (!el) continue;
    el.scrollIntoView({ block: 'center', inline: 'nearest' });
    const r = el.getBoundingClientRect();
    if (r.width === 0 && r.height === 0) continue;
    return { selector: sel, x: r.left + r.width / 2, y: r.top + r.height / 2, width: r.width, height: r.height };
  }
  return null;
}`

// ActivateScript dispatches the synthetic click sequence at the composer
// center and calls native focus. It reports whether focus landed inside it.
const ActivateScript = `(selector) => {
  const el = document.querySelector(selector);
  if (!el) return false;
  const r = el.getBoundingClientRect();
  const x = r.left + r.width / 2;
  const y = r.top + r.height / 2;
  const opts = { bubbles: true, cancelable: true, view: window, clientX: x, clientY: y, button: 0 };
  el.dispatchEvent(new MouseEvent('mousedown', opts));
  el.dispatchEvent(new MouseEvent('mouseup', opts));
  el.dispatchEvent(new MouseEvent('click', opts));
  el.focus();
  const active = document.activeElement;
  return !!active && (active === el || el.contains(active));
}`

// FocusedScript reports whether focus is inside the composer.
const FocusedScript = `(selector) => {
  const el = document.querySelector(selector);
  const active = document.activeElement;
  return !!el && !!active && (active === el || el.contains(active));
}`

// InsertScript types text into the focused composer. Rich-text editors get
// execCommand so their own input handling runs; plain fields fall back to
// setting the value and firing input.
const InsertScript = `({ selector, text }) => {
  const el = document.querySelector(selector);
  if (!el) return false;
  const active = document.activeElement;
  if (!active || !(active === el || el.contains(active))) el.focus();
  if (document.execCommand('insertText', false, text)) return true;
  if ('value' in el) {
    const setter = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(el), 'value');
    if (setter && setter.set) setter.set.call(el, (el.value || '') + text);
    else el.value = (el.value || '') + text;
  } else {
    el.textContent = (el.textContent || '') + text;
  }
  el.dispatchEvent(new InputEvent('input', { bubbles: true, data: text, inputType: 'insertText' }));
  return true;
}`

// SubmitScript clicks the first enabled submit control.
const SubmitScript = `(selectors) => {
  for (const sel of selectors) {
    const el = document.querySelector(sel);
    if (!el) continue;
    if (el.disabled || el.getAttribute('aria-disabled') === 'true') return { found: true, clicked: false };
    el.click();
    return { found: true, clicked: true };
  }
  return { found: false, clicked: false };
}`
