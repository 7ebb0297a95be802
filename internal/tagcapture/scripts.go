package tagcapture

import (
	"encoding/json"
	"fmt"
)

// MonitorScript returns the script injected before page load. It hooks the
// Tealium utag.view/utag.link entry points, dataLayer.push, and the common
// vendor call functions, pushing each invocation into a page-side buffer
// the session drains. utag often loads late, so hooking retries on an
// interval until it lands or times out.
func MonitorScript() string {
	return `
(function() {
	if (window.__tagEvents) return;
	window.__tagEvents = [];

	var MAX_DEPTH = 5;

	function safeCopy(value, depth) {
		if (depth > MAX_DEPTH) return '[max depth]';
		if (value === null || value === undefined) return null;
		var t = typeof value;
		if (t === 'function') return '[function]';
		if (t === 'symbol') return '[symbol]';
		if (t === 'bigint') return value.toString();
		if (t !== 'object') return value;
		if (value instanceof Element || value instanceof Node) return '[dom element]';
		if (Array.isArray(value)) {
			var arr = [];
			for (var i = 0; i < value.length; i++) arr.push(safeCopy(value[i], depth + 1));
			return arr;
		}
		var out = {};
		try {
			for (var key in value) {
				out[key] = safeCopy(value[key], depth + 1);
			}
		} catch (e) {
			return '[copy error: ' + e.message + ']';
		}
		return out;
	}

	function record(fn, payload) {
		try {
			window.__tagEvents.push({
				functionName: fn,
				payload: safeCopy(payload, 0),
				timestamp: Date.now(),
				url: window.location.href
			});
		} catch (e) {
			console.error('tag monitor: record failed for ' + fn, e);
		}
	}
	window.__recordTagEvent = record;

	function hookUtag(utag) {
		if (!utag) return false;
		var done = true;
		if (typeof utag.view === 'function' && !utag.view.__hooked) {
			var origView = utag.view;
			utag.view = function(data) { record('utag.view', data); return origView.apply(this, arguments); };
			utag.view.__hooked = true;
		} else if (!utag.view) {
			done = false;
		}
		if (typeof utag.link === 'function' && !utag.link.__hooked) {
			var origLink = utag.link;
			utag.link = function(data) { record('utag.link', data); return origLink.apply(this, arguments); };
			utag.link.__hooked = true;
		} else if (!utag.link) {
			done = false;
		}
		return done;
	}

	if (!hookUtag(window.utag)) {
		var tries = 0;
		var timer = setInterval(function() {
			tries++;
			if (hookUtag(window.utag) || tries > 30) clearInterval(timer);
		}, 500);
	}

	function hookDataLayer() {
		var dl = window.dataLayer;
		if (!dl || !Array.isArray(dl) || typeof dl.push !== 'function' || dl.push.__hooked) return;
		var origPush = dl.push;
		dl.push = function() {
			record('dataLayer.push', arguments[0]);
			return origPush.apply(this, arguments);
		};
		dl.push.__hooked = true;
	}
	hookDataLayer();
	setTimeout(hookDataLayer, 1000);

	function hookCall(path, funcName, label) {
		try {
			var parts = path.split('.');
			var obj = window;
			for (var i = 0; i < parts.length; i++) {
				if (!obj || typeof obj[parts[i]] === 'undefined') return;
				obj = obj[parts[i]];
			}
			if (typeof obj[funcName] !== 'function' || obj[funcName].__hooked) return;
			var orig = obj[funcName];
			obj[funcName] = function() {
				record(label, Array.prototype.slice.call(arguments));
				return orig.apply(this, arguments);
			};
			obj[funcName].__hooked = true;
		} catch (e) {
			console.error('tag monitor: hook failed for ' + path + '.' + funcName, e);
		}
	}

	function hookVendorCalls() {
		hookCall('ga', 'send', 'ga.send');
		hookCall('gtag', 'event', 'gtag.event');
		hookCall('fbq', 'track', 'fbq.track');
		hookCall('hj', 'event', 'hj.event');
		hookCall('pintrk', 'track', 'pintrk.track');
		hookCall('snaptr', 'track', 'snaptr.track');
		hookCall('ttq', 'track', 'ttq.track');
	}
	hookVendorCalls();
	setTimeout(hookVendorCalls, 2000);
})();
`
}

// NetworkHookScript returns the script that mirrors in-page fetch and XHR
// traffic into the same buffer, covering beacons that the browser-level
// network feed attributes poorly.
func NetworkHookScript() string {
	return `
(function() {
	if (window.__tagNetHooked) return;
	window.__tagNetHooked = true;
	if (!window.__tagEvents) window.__tagEvents = [];

	function recordNet(url, method, kind) {
		if (!url) return;
		window.__tagEvents.push({
			functionName: kind,
			payload: { url: String(url), method: method || 'GET' },
			timestamp: Date.now(),
			url: window.location.href
		});
	}

	var origFetch = window.fetch;
	if (origFetch) {
		window.fetch = function(input, init) {
			var url = typeof input === 'string' ? input : (input && input.url);
			recordNet(url, init && init.method, 'fetch');
			return origFetch.apply(this, arguments);
		};
	}

	var origOpen = XMLHttpRequest.prototype.open;
	var origSend = XMLHttpRequest.prototype.send;
	XMLHttpRequest.prototype.open = function(method, url) {
		this.__tagURL = url;
		this.__tagMethod = method;
		return origOpen.apply(this, arguments);
	};
	XMLHttpRequest.prototype.send = function() {
		recordNet(this.__tagURL, this.__tagMethod, 'xhr');
		return origSend.apply(this, arguments);
	};
})();
`
}

// drainScript atomically takes and clears the page-side buffer.
const drainScript = `
(function() {
	var events = window.__tagEvents || [];
	window.__tagEvents = [];
	return JSON.stringify(events);
})()
`

// DetectVendorObjectsScript returns a script that probes the page for the
// known vendor globals and reports which are installed.
func DetectVendorObjectsScript() string {
	objs := make([]map[string]string, 0, len(globalVendorObjects))
	for _, v := range globalVendorObjects {
		objs = append(objs, map[string]string{
			"object":   v.Object,
			"name":     v.Name,
			"category": v.Category,
		})
	}
	table, _ := json.Marshal(objs)
	return fmt.Sprintf(`
(function() {
	var vendors = %s;
	var found = [];
	vendors.forEach(function(v) {
		try {
			var parts = v.object.split('.');
			var cur = window;
			for (var i = 0; i < parts.length; i++) {
				if (typeof cur[parts[i]] === 'undefined') return;
				cur = cur[parts[i]];
			}
			found.push({ name: v.name, category: v.category, object: v.object });
		} catch (e) {}
	});
	return found;
})()
`, table)
}
