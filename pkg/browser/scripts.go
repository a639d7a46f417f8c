package browser

// Scripts evaluated in the page. Each is a function expression; Playwright
// calls it with the single argument passed to Evaluate.

// mirrorScript serializes the document into the dom.WireDocument shape. Overlay
// nodes are left out so they never show up in a snapshot.
const mirrorScript = `(maxNodes) => {
  const markers = ['beacon-highlight', 'beacon-arrow', 'beacon-tooltip'];
  const opaque = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'svg', 'SVG', 'IFRAME', 'CANVAS']);
  let count = 0;
  const walk = (el) => {
    if (++count > maxNodes) return null;
    if (el.classList && markers.some((m) => el.classList.contains(m))) return null;
    const r = el.getBoundingClientRect();
    const cs = getComputedStyle(el);
    const node = {
      tag: el.tagName.toLowerCase(),
      rect: [r.x, r.y, r.width, r.height],
      style: { d: cs.display, v: cs.visibility, o: parseFloat(cs.opacity), pe: cs.pointerEvents, c: cs.cursor },
    };
    if (el.attributes.length) {
      node.attrs = [];
      for (const a of el.attributes) node.attrs.push([a.name, a.value]);
    }
    if (opaque.has(el.tagName)) return node;
    const kids = [];
    for (const c of el.childNodes) {
      if (c.nodeType === 1) {
        const k = walk(c);
        if (k) kids.push(k);
      } else if (c.nodeType === 3 && c.nodeValue) {
        kids.push({ text: c.nodeValue });
      }
    }
    if (kids.length) node.children = kids;
    return node;
  };
  return JSON.stringify({
    url: location.href,
    title: document.title,
    viewport: { width: innerWidth, height: innerHeight, scrollX: scrollX, scrollY: scrollY },
    root: walk(document.documentElement),
  });
}`

// measureScript returns the target's viewport rect, or attached=false.
const measureScript = `(selector) => {
  let el = null;
  try { el = document.querySelector(selector); } catch (e) { return { error: String(e) }; }
  const viewport = { width: innerWidth, height: innerHeight, scrollX: scrollX, scrollY: scrollY };
  if (!el || !el.isConnected) return { attached: false, viewport };
  const r = el.getBoundingClientRect();
  return { attached: true, rect: { x: r.x, y: r.y, width: r.width, height: r.height }, viewport };
}`

const scrollScript = `(selector) => {
  const el = document.querySelector(selector);
  if (!el) return false;
  el.scrollIntoView({ behavior: 'smooth', block: 'center', inline: 'center' });
  return true;
}`

// paintScript creates the three overlay nodes on first use and moves them on
// later calls with the same frame id. Nodes of any other frame are removed
// first so at most one triple exists.
const paintScript = `(f) => {
  const kinds = { highlight: 'beacon-highlight', arrow: 'beacon-arrow', tooltip: 'beacon-tooltip' };
  for (const cls of Object.values(kinds)) {
    for (const el of document.querySelectorAll('.' + cls)) {
      if (el.dataset.beaconFrame !== f.id) el.remove();
    }
  }
  const node = (kind) => {
    let el = document.querySelector('.' + kinds[kind] + '[data-beacon-frame="' + f.id + '"]');
    if (!el) {
      el = document.createElement('div');
      el.className = kinds[kind];
      el.dataset.beaconFrame = f.id;
      el.setAttribute('aria-hidden', kind === 'tooltip' ? 'false' : 'true');
      if (kind === 'tooltip') el.setAttribute('role', 'status');
      document.documentElement.appendChild(el);
    }
    return el;
  };
  const px = (v) => Math.round(v) + 'px';
  const base = 'position:fixed;z-index:2147483647;pointer-events:none;box-sizing:border-box;';

  const hl = node('highlight');
  hl.style.cssText = base + 'left:' + px(f.highlight.x) + ';top:' + px(f.highlight.y) +
    ';width:' + px(f.highlight.width) + ';height:' + px(f.highlight.height) +
    ';border:3px solid ' + f.tone.color + ';border-radius:8px;box-shadow:0 0 0 4px ' + f.tone.color + '33;' +
    'transition:all 120ms ease-out;';

  const glyph = { right: '←', left: '→', top: '↓' };
  const ar = node('arrow');
  ar.textContent = glyph[f.arrow.side] || '↓';
  ar.style.cssText = base + 'left:' + px(f.arrow.rect.x) + ';top:' + px(f.arrow.rect.y) +
    ';width:' + px(f.arrow.rect.width) + ';height:' + px(f.arrow.rect.height) +
    ';color:' + f.tone.color + ';font:bold 32px/1 system-ui,sans-serif;display:flex;align-items:center;justify-content:center;' +
    'text-shadow:0 1px 2px #0006;';

  const tip = node('tooltip');
  tip.textContent = f.tooltip.text;
  tip.style.cssText = base + 'left:' + px(f.tooltip.x) + ';top:' + px(f.tooltip.y) +
    ';max-width:' + px(f.tooltip.maxWidth) + ';background:#111827;color:#fff;padding:8px 12px;border-radius:6px;' +
    'font:14px/1.4 system-ui,sans-serif;border-left:4px solid ' + f.tone.color + ';' +
    (f.tooltip.text ? '' : 'display:none;');
  return true;
}`

const eraseScript = `() => {
  let n = 0;
  for (const el of document.querySelectorAll('.beacon-highlight, .beacon-arrow, .beacon-tooltip')) {
    el.remove();
    n++;
  }
  return n;
}`

// subscribeScript attaches scroll, resize and pointer listeners that report
// through the exposed event binding. Listeners are kept per subscription id
// so unsubscribeScript can detach exactly those.
const subscribeScript = `(id) => {
  const reg = (window.__beaconListeners = window.__beaconListeners || {});
  const fire = (kind) => () => { try { window.__beaconEvent(id, kind); } catch (e) {} };
  const onView = fire('viewport');
  const onDown = fire('pointer');
  addEventListener('scroll', onView, { passive: true, capture: true });
  addEventListener('resize', onView, { passive: true });
  addEventListener('pointerdown', onDown, { capture: true });
  reg[id] = () => {
    removeEventListener('scroll', onView, { capture: true });
    removeEventListener('resize', onView);
    removeEventListener('pointerdown', onDown, { capture: true });
  };
  return true;
}`

const unsubscribeScript = `(id) => {
  const reg = window.__beaconListeners || {};
  if (reg[id]) { reg[id](); delete reg[id]; }
  return true;
}`

// speakScript resolves when the utterance ends. It resolves with an error
// code instead of rejecting so cancellation reads as "interrupted".
const speakScript = `(u) => new Promise((resolve) => {
  if (!('speechSynthesis' in window)) { resolve('unsupported'); return; }
  const utt = new SpeechSynthesisUtterance(u.text);
  if (u.lang) utt.lang = u.lang;
  utt.rate = u.rate || 1;
  utt.pitch = u.pitch || 1;
  utt.onend = () => resolve('');
  utt.onerror = (e) => resolve(e.error || 'error');
  speechSynthesis.cancel();
  speechSynthesis.speak(utt);
})`

const stopSpeechScript = `() => { if ('speechSynthesis' in window) speechSynthesis.cancel(); return true; }`

const playAudioScript = `(a) => new Promise((resolve) => {
  if (window.__beaconAudio) { window.__beaconAudio.pause(); }
  const audio = new Audio('data:' + a.mime + ';base64,' + a.data);
  window.__beaconAudio = audio;
  audio.onended = () => resolve('');
  audio.onerror = () => resolve('playback failed');
  audio.onpause = () => resolve('interrupted');
  audio.play().catch((e) => resolve(String(e)));
})`

const stopAudioScript = `() => {
  if (window.__beaconAudio) { window.__beaconAudio.pause(); window.__beaconAudio = null; }
  return true;
}`

// recognizeScript starts continuous recognition and reports through the
// exposed voice binding.
const recognizeScript = `(lang) => {
  const Rec = window.SpeechRecognition || window.webkitSpeechRecognition;
  if (!Rec) return 'unsupported';
  if (window.__beaconRecognition) window.__beaconRecognition.abort();
  const rec = new Rec();
  rec.lang = lang;
  rec.continuous = true;
  rec.interimResults = true;
  rec.onresult = (e) => {
    for (let i = e.resultIndex; i < e.results.length; i++) {
      window.__beaconVoice('result', e.results[i][0].transcript, e.results[i].isFinal);
    }
  };
  rec.onerror = (e) => window.__beaconVoice('error', e.error, false);
  rec.onend = () => { window.__beaconRecognition = null; window.__beaconVoice('end', '', false); };
  window.__beaconRecognition = rec;
  try { rec.start(); } catch (e) { return String(e); }
  return '';
}`

const stopRecognitionScript = `() => {
  if (window.__beaconRecognition) window.__beaconRecognition.stop();
  return true;
}`
