package sandbox

import "github.com/dop251/goja"

// maxRegisteredItems bounds the per-sandbox item table. Ids are kept in
// batches, one per returned list, and whole older batches are evicted
// first. The newest batch is never evicted, however large it is.
const maxRegisteredItems = 4096

// prelude runs before the plugin script. It defines the constructors
// plugins use to build results and keeps every returned item in a table
// so the host only ever exchanges ids.
const prelude = `
"use strict";
var Icon = Object.freeze({
	name: function (name) { return { kind: "name", value: String(name) }; },
	text: function (text) { return { kind: "text", value: String(text) }; }
});
var Style = Object.freeze({
	rows: function () { return { kind: "rows" }; },
	grid: function () { return { kind: "grid" }; },
	gridWithColumns: function (n) { return { kind: "grid", columns: n }; }
});
var Action = Object.freeze({
	close: function () { return { kind: "close" }; },
	runCommand: function (program, args) { return { kind: "run-command", program: String(program), args: args || [] }; },
	runShell: function (line) { return { kind: "run-shell", line: String(line) }; },
	copy: function (text) { return { kind: "copy", text: String(text) }; },
	setInput: function (text, selection) { return { kind: "set-input", text: String(text), selection: selection || null }; }
});
function Immediate(items, style) {
	return { kind: "immediate", items: items || [], style: style || null };
}
var Deferred = Object.freeze({
	spawn: function (program, args, capture) {
		return { kind: "deferred", action: { spawn: { program: String(program), args: args || [], capture: capture || "both" } } };
	}
});

var __sift = (function () {
	var batches = [];
	var registered = 0;
	var nextId = 0;
	var limit = __LIMIT__;

	function text(v) { return v === undefined || v === null ? "" : String(v); }

	function register(batch, item, index) {
		if (item === null || typeof item !== "object") {
			throw new TypeError("item " + index + " is not an object");
		}
		nextId++;
		var id = String(nextId);
		batch.set(id, item);
		return {
			id: id,
			title: text(item.title),
			description: text(item.description),
			metadata: text(item.metadata),
			icon: item.icon || null
		};
	}

	function finish(result) {
		if (Array.isArray(result)) {
			result = Immediate(result);
		}
		if (result === null || typeof result !== "object") {
			throw new TypeError("expected Immediate(...) or Deferred.spawn(...), got " + typeof result);
		}
		if (result.kind === "deferred") {
			return { kind: "deferred", action: result.action };
		}
		if (result.kind !== "immediate") {
			throw new TypeError("unknown result kind " + result.kind);
		}
		var list = result.items || [];
		if (!Array.isArray(list)) {
			throw new TypeError("items must be an array");
		}
		var batch = new Map();
		var out = [];
		for (var i = 0; i < list.length; i++) {
			out.push(register(batch, list[i], i));
		}
		commit(batch);
		return { kind: "immediate", items: out, style: result.style || null };
	}

	function commit(batch) {
		if (batch.size === 0) {
			return;
		}
		batches.push(batch);
		registered += batch.size;
		while (batches.length > 1 && registered > limit) {
			registered -= batches.shift().size;
		}
	}

	function lookup(id) {
		for (var i = batches.length - 1; i >= 0; i--) {
			var item = batches[i].get(id);
			if (item !== undefined) {
				return item;
			}
		}
		return undefined;
	}

	function activateItem(fn, id, command) {
		var item = lookup(id);
		if (item === undefined) {
			throw new Error("unknown item " + id);
		}
		var actions = fn(item, command);
		if (actions === undefined || actions === null) {
			return [];
		}
		return Array.isArray(actions) ? actions : [actions];
	}

	return Object.freeze({ finish: finish, activate: activateItem });
})();
`

var preludeProgram = goja.MustCompile("prelude.js", expandPrelude(), true)

func expandPrelude() string {
	return replaceLimit(prelude, maxRegisteredItems)
}
