package seats

// Shared helpers injected into every scan script. desc prefers explicit
// title/handler text and otherwise synthesizes a row/seat/price description
// from whatever structured fields the cell carries.
const jsHelpers = `
	const PRICE = 'Цена';
	const FREE = ['free', 'available', 'avail', 'vacant', 'svobod'];
	const BUSY = ['busy', 'sold', 'taken', 'reserved', 'occupied', 'unavail', 'disabled', 'zanyat'];
	const hasToken = (el, toks) => {
		const cls = (el.getAttribute('class') || '').toLowerCase();
		return toks.some(t => cls.indexOf(t) !== -1);
	};
	const flagSet = (el, name) => {
		const v = el.getAttribute(name);
		return v === '' || v === '1' || v === 'true' || v === 'yes';
	};
	const desc = (el) => {
		const t = el.getAttribute('title');
		if (t && t.trim()) return t.trim();
		const oc = el.getAttribute('onclick');
		if (oc && oc.indexOf(PRICE) !== -1) return oc.trim();
		const row = el.getAttribute('data-row') ||
			(el.parentElement && el.parentElement.rowIndex >= 0 ? el.parentElement.rowIndex + 1 : '');
		let seat = el.getAttribute('data-seat') || el.getAttribute('data-place') || '';
		if (seat === '' && el.cellIndex >= 0) seat = el.cellIndex + 1;
		if (seat === '') seat = (el.textContent || '').trim();
		const price = el.getAttribute('data-price') || el.getAttribute('data-cost') || '';
		let s = '';
		if (row !== '') s += 'row ' + row;
		if (seat !== '') s += (s ? ' ' : '') + 'seat ' + seat;
		if (price !== '') s += (s ? ' ' : '') + 'price ' + price;
		return s;
	};
	const push = (arr, el) => { const d = desc(el); if (d) arr.push(d); };
`

// (a) Seat-table cells whose class tokens look free and not busy, or that
// carry explicit free flags, or are bare numeric cells not marked busy.
const seatCellClassJS = `() => {` + jsHelpers + `
	const seats = [];
	for (const td of document.querySelectorAll('table#myHall td.place, td.place')) {
		const busy = hasToken(td, BUSY);
		const freeCls = hasToken(td, FREE) && !busy;
		const freeFlag = flagSet(td, 'data-free') || flagSet(td, 'data-available');
		const numeric = /^[0-9]+$/.test((td.textContent || '').trim()) && !busy;
		if (freeCls || freeFlag || numeric) push(seats, td);
	}
	return JSON.stringify(seats);
}`

// (b) Seat cells carrying a priced title attribute.
const seatCellPricedTitleJS = `() => {` + jsHelpers + `
	const seats = [];
	for (const td of document.querySelectorAll('td.place')) {
		const t = td.getAttribute('title');
		if (t && t.indexOf(PRICE) !== -1) seats.push(t.trim());
	}
	return JSON.stringify(seats);
}`

// (c) Any element with a priced title, not just seat cells.
const anyPricedTitleJS = `() => {` + jsHelpers + `
	const seats = [];
	for (const el of document.querySelectorAll('[title]')) {
		const t = el.getAttribute('title');
		if (t && t.indexOf(PRICE) !== -1) seats.push(t.trim());
	}
	return JSON.stringify(seats);
}`

// (d) Clickable elements exposing price via title or inline handler.
const clickablePricedJS = `() => {` + jsHelpers + `
	const seats = [];
	for (const el of document.querySelectorAll('a, button, [onclick]')) {
		const t = el.getAttribute('title') || '';
		const oc = el.getAttribute('onclick') || '';
		if (t.indexOf(PRICE) !== -1 || oc.indexOf(PRICE) !== -1) push(seats, el);
	}
	return JSON.stringify(seats);
}`

// (e) Exhaustive pass over every table cell.
const allCellsPricedJS = `() => {` + jsHelpers + `
	const seats = [];
	for (const td of document.querySelectorAll('td, th')) {
		const t = td.getAttribute('title') || '';
		const oc = td.getAttribute('onclick') || '';
		if (t.indexOf(PRICE) !== -1 || oc.indexOf(PRICE) !== -1) push(seats, td);
	}
	return JSON.stringify(seats);
}`

// (f) Generic "looks free" scan over a broad cell selector: free class
// vocabulary or price-hint data attributes.
const genericFreeClassJS = `() => {` + jsHelpers + `
	const seats = [];
	const sel = 'table td, table th, [class*="seat"], [class*="place"]';
	for (const el of document.querySelectorAll(sel)) {
		const busy = hasToken(el, BUSY);
		const freeCls = hasToken(el, FREE) && !busy;
		const priced = el.hasAttribute('data-price') || el.hasAttribute('data-cost');
		if (freeCls || (priced && !busy)) push(seats, el);
	}
	return JSON.stringify(seats);
}`

// (h) Replay the page's own seat-data call. The renderer is located by
// scanning globals for a function whose source references the hall table;
// the markup never names it consistently.
const bypassJS = `async () => {` + jsHelpers + `
	const qs = new URLSearchParams(location.search);
	const base = qs.get('base'), data = qs.get('data');
	if (!base || !data) return JSON.stringify({blocked: false, seats: []});

	let text = '';
	try {
		const resp = await fetch('gettable.html?base=' + encodeURIComponent(base) +
			'&data=' + encodeURIComponent(data), {credentials: 'same-origin'});
		if (resp.status === 403 || resp.status === 429) {
			return JSON.stringify({blocked: true, seats: []});
		}
		text = await resp.text();
	} catch (e) {
		return JSON.stringify({blocked: false, seats: []});
	}
	if (/not a bot|proof[- ]of[- ]work|anubis/i.test(text)) {
		return JSON.stringify({blocked: true, seats: []});
	}

	let render = null;
	for (const k of Object.getOwnPropertyNames(window)) {
		try {
			const v = window[k];
			if (typeof v === 'function' && /myHall/.test(String(v))) { render = v; break; }
		} catch (e) {}
	}
	if (render) {
		let payload = text;
		try { payload = JSON.parse(text); } catch (e) {}
		try { render(payload); } catch (e) {}
		await new Promise(r => setTimeout(r, 500));
	}

	const seats = [];
	for (const td of document.querySelectorAll('table#myHall td.place, td.place')) {
		const t = td.getAttribute('title');
		if (t && t.indexOf(PRICE) !== -1) seats.push(t.trim());
	}
	return JSON.stringify({blocked: false, seats});
}`

// (i) Last resort: find the inline script payload normally handed to the
// renderer, parse it, and invoke the renderer manually.
const payloadJS = `async () => {` + jsHelpers + `
	let render = null;
	for (const k of Object.getOwnPropertyNames(window)) {
		try {
			const v = window[k];
			if (typeof v === 'function' && /myHall/.test(String(v))) { render = v; break; }
		} catch (e) {}
	}
	if (!render) return JSON.stringify([]);

	let payload = null;
	for (const s of document.querySelectorAll('script:not([src])')) {
		const m = (s.textContent || '').match(/\w+\(\s*(\{[\s\S]*?\}|\[[\s\S]*?\])\s*\)/);
		if (!m) continue;
		try { payload = JSON.parse(m[1]); break; } catch (e) {}
	}
	if (payload === null) return JSON.stringify([]);

	try { render(payload); } catch (e) { return JSON.stringify([]); }
	await new Promise(r => setTimeout(r, 500));

	const seats = [];
	for (const td of document.querySelectorAll('table#myHall td.place, td.place')) {
		const t = td.getAttribute('title');
		if (t && t.indexOf(PRICE) !== -1) seats.push(t.trim());
	}
	return JSON.stringify(seats);
}`
