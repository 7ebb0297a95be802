package locator

// MessagePrefix marks console lines emitted by the in-page recorder.
// Everything after the prefix is a JSON-encoded recorded event.
const MessagePrefix = "MACRO_ACTION: "

// RecordingScript returns the script injected into recorded pages. It
// captures clicks, typed input and scrolls, builds a durable selector plus
// a locator bundle for each target element, and reports events through
// console.log lines carrying the MessagePrefix.
func RecordingScript() string {
	return `
(function() {
	if (window.__macroRecorder) return;

	var GENERIC_CLASSES = ['active', 'selected', 'hover', 'focus', 'disabled',
		'btn', 'button', 'link', 'open', 'in', 'show'];

	function isGenericClass(cls) {
		var lower = cls.toLowerCase();
		for (var i = 0; i < GENERIC_CLASSES.length; i++) {
			if (lower === GENERIC_CLASSES[i]) return true;
		}
		return /^(js-|is-|has-)/.test(lower) || /\d{3,}/.test(cls);
	}

	function usableClasses(el) {
		var out = [];
		if (!el.classList) return out;
		for (var i = 0; i < el.classList.length; i++) {
			var cls = el.classList[i];
			if (!isGenericClass(cls)) out.push(cls);
			if (out.length === 2) break;
		}
		return out;
	}

	function cssEscape(value) {
		if (window.CSS && CSS.escape) return CSS.escape(value);
		return value.replace(/([^a-zA-Z0-9_-])/g, '\\$1');
	}

	function isUnique(selector) {
		try {
			return document.querySelectorAll(selector).length === 1;
		} catch (e) {
			return false;
		}
	}

	function attrSelector(el) {
		var attrs = ['data-testid', 'data-cy', 'data-test', 'data-automation'];
		for (var i = 0; i < attrs.length; i++) {
			var val = el.getAttribute(attrs[i]);
			if (val) {
				var sel = '[' + attrs[i] + '="' + val + '"]';
				if (isUnique(sel)) return sel;
			}
		}
		return null;
	}

	function nodeSelector(el) {
		var sel = el.nodeName.toLowerCase();
		var classes = usableClasses(el);
		for (var i = 0; i < classes.length; i++) {
			sel += '.' + cssEscape(classes[i]);
		}
		return sel;
	}

	function withNthChild(el, sel) {
		var parent = el.parentElement;
		if (!parent) return sel;
		var index = 1;
		var sib = el;
		while ((sib = sib.previousElementSibling) !== null) index++;
		return sel + ':nth-child(' + index + ')';
	}

	// Retail-page selectors: elements inside cart forms, expanded accordion
	// panels, retailer link columns, preview buttons and newsletter signups
	// get a scoped selector anchored on the stable container.
	function commerceSelector(el) {
		var cartForm = el.closest('form[action*="cart"]');
		if (cartForm) {
			var sel = 'form[action*="cart"] ' + nodeSelector(el);
			if (isUnique(sel)) return sel;
		}
		var panel = el.closest('div[id^="collapse"].in');
		if (panel && panel.id) {
			var scoped = '#' + cssEscape(panel.id) + '.in ' + nodeSelector(el);
			if (isUnique(scoped)) return scoped;
		}
		var retail = el.closest('.buy_clmn, .isbn-related, [class*="affiliate"]');
		if (retail && el.tagName === 'A' && el.href) {
			var host;
			try { host = new URL(el.href).hostname; } catch (e) { host = null; }
			if (host) {
				var byHref = nodeSelector(retail) + ' a[href*="' + host + '"]';
				if (isUnique(byHref)) return byHref;
			}
		}
		var preview = el.closest('[class*="look-inside"], [class*="read-sample"], [id*="look-inside"], [id*="read-sample"]');
		if (preview) {
			var psel = nodeSelector(preview) + ' ' + nodeSelector(el);
			if (isUnique(psel)) return psel;
		}
		if (el.tagName === 'INPUT' && el.type === 'email') {
			var form = el.closest('form');
			if (form) {
				var fsel = nodeSelector(form) + ' input[type="email"]';
				if (isUnique(fsel)) return fsel;
			}
			if (isUnique('input[type="email"]')) return 'input[type="email"]';
		}
		return null;
	}

	function structuralSelector(el) {
		var path = [];
		var cur = el;
		for (var depth = 0; depth < 5 && cur && cur.nodeType === Node.ELEMENT_NODE; depth++) {
			if (cur.id) {
				path.unshift('#' + cssEscape(cur.id));
				break;
			}
			var part = nodeSelector(cur);
			var joined = part + (path.length ? ' > ' + path.join(' > ') : '');
			if (!isUnique(joined)) part = withNthChild(cur, part);
			path.unshift(part);
			if (isUnique(path.join(' > '))) break;
			cur = cur.parentElement;
		}
		return path.join(' > ');
	}

	function textFallback(el) {
		var interactive = el.tagName === 'A' || el.tagName === 'BUTTON' || el.getAttribute('role') === 'button';
		if (!interactive) return null;
		var text = (el.textContent || '').trim();
		if (!text || text.length >= 50 || text.indexOf('"') !== -1) return null;
		return '//' + el.tagName.toLowerCase() + '[normalize-space(.)="' + text + '"]';
	}

	function buildSelector(el) {
		if (el.id) {
			var byID = '#' + cssEscape(el.id);
			if (isUnique(byID)) return byID;
		}
		var byAttr = attrSelector(el);
		if (byAttr) return byAttr;
		var byCommerce = commerceSelector(el);
		if (byCommerce) return byCommerce;
		var byPath = structuralSelector(el);
		if (isUnique(byPath)) return byPath;
		var byText = textFallback(el);
		return byText || byPath;
	}

	function xpathOf(el) {
		var parts = [];
		var cur = el;
		while (cur && cur.nodeType === Node.ELEMENT_NODE) {
			var index = 1;
			var sib = cur.previousElementSibling;
			while (sib) {
				if (sib.nodeName === cur.nodeName) index++;
				sib = sib.previousElementSibling;
			}
			parts.unshift(cur.nodeName.toLowerCase() + '[' + index + ']');
			cur = cur.parentElement;
		}
		return '//' + parts.join('/');
	}

	function implicitRole(el) {
		var tag = el.tagName.toLowerCase();
		if (tag === 'a' && el.href) return 'link';
		if (tag === 'button') return 'button';
		if (tag === 'input') {
			var t = (el.type || 'text').toLowerCase();
			if (t === 'submit' || t === 'button') return 'button';
			if (t === 'checkbox') return 'checkbox';
			if (t === 'radio') return 'radio';
			return 'textbox';
		}
		if (tag === 'select') return 'combobox';
		if (tag === 'textarea') return 'textbox';
		if (tag === 'img') return 'img';
		return '';
	}

	function accessibleName(el) {
		var name = el.getAttribute('aria-label') || '';
		if (!name && el.labels && el.labels.length > 0) {
			name = el.labels[0].textContent || '';
		}
		if (!name) name = (el.innerText || el.value || '').trim();
		name = name.replace(/\s+/g, ' ').trim();
		return name.length > 100 ? name.slice(0, 100) : name;
	}

	function buildBundle(el) {
		var ancestors = [];
		var cur = el.parentElement;
		for (var i = 0; i < 5 && cur && cur.nodeType === Node.ELEMENT_NODE; i++) {
			ancestors.push({
				tag: cur.tagName.toLowerCase(),
				id: cur.id || '',
				classes: cur.classList ? Array.prototype.slice.call(cur.classList) : []
			});
			cur = cur.parentElement;
		}
		var text = (el.innerText || '').replace(/\s+/g, ' ').trim();
		return {
			role: el.getAttribute('role') || implicitRole(el),
			name: accessibleName(el),
			href: el.href || '',
			tag: el.tagName.toLowerCase(),
			id: el.id || '',
			classes: el.classList ? Array.prototype.slice.call(el.classList) : [],
			text: text.length > 100 ? text.slice(0, 100) : text,
			xpath: xpathOf(el),
			ancestors: ancestors
		};
	}

	function emit(ev) {
		console.log('MACRO_ACTION: ' + JSON.stringify(ev));
	}

	window.__macroRecorder = {
		active: true,
		flush: function() { flushInput(); }
	};

	document.addEventListener('click', function(event) {
		if (!event.isTrusted || !window.__macroRecorder.active) return;
		var el = event.target.closest('a, button, [role="button"], input, select, label') || event.target;
		flushInput();
		emit({
			kind: 'click',
			selector: buildSelector(el),
			bundle: buildBundle(el),
			coordinates: {
				x: event.clientX,
				y: event.clientY,
				pageX: event.pageX,
				pageY: event.pageY
			},
			timestamp: Date.now(),
			url: window.location.href
		});
	}, true);

	// Typing is debounced so one event carries the final field value.
	var pendingInput = null;
	var inputTimer = null;

	function flushInput() {
		if (inputTimer) {
			clearTimeout(inputTimer);
			inputTimer = null;
		}
		if (pendingInput) {
			emit(pendingInput);
			pendingInput = null;
		}
	}

	document.addEventListener('input', function(event) {
		if (!event.isTrusted || !window.__macroRecorder.active) return;
		var el = event.target;
		var tag = el.tagName ? el.tagName.toLowerCase() : '';
		if (tag !== 'input' && tag !== 'textarea') return;
		if (pendingInput && pendingInput.selector !== buildSelector(el)) flushInput();
		pendingInput = {
			kind: 'type',
			selector: buildSelector(el),
			bundle: buildBundle(el),
			text: el.value,
			timestamp: Date.now(),
			url: window.location.href
		};
		if (inputTimer) clearTimeout(inputTimer);
		inputTimer = setTimeout(flushInput, 500);
	}, true);

	document.addEventListener('blur', function(event) {
		if (event.isTrusted) flushInput();
	}, true);

	// Scrolls are debounced and report the final window position.
	var scrollTimer = null;
	window.addEventListener('scroll', function() {
		if (!window.__macroRecorder.active) return;
		if (scrollTimer) clearTimeout(scrollTimer);
		scrollTimer = setTimeout(function() {
			emit({
				kind: 'scroll',
				coordinates: {
					x: window.scrollX,
					y: window.scrollY,
					pageX: window.scrollX,
					pageY: window.scrollY
				},
				timestamp: Date.now(),
				url: window.location.href
			});
		}, 300);
	}, true);
})();
`
}
