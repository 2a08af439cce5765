package page

// Client bootstrap scripts. The live variant mirrors the server's wire
// format: batches of {eleId, ops} where op keys are attribute names, with
// "textContent" and "innerHTML" reserved; resizes observed on containers
// are reported back over the same socket. The static variant hands each
// embedded payload to the widget's client-side binding, evaluating any
// paths listed in evals first.
const liveBootstrapJS = `
const live = document.body.dataset.live;
const ws = new WebSocket(live === "auto"
	? (location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws"
	: live);
ws.onerror = function (event) {
	console.log("websocket error: ", event);
};
ws.onmessage = function (event) {
	const batch = JSON.parse(event.data);
	for (const update of batch) {
		const ele = document.getElementById(update.eleId);
		if (ele === null) continue;
		for (const op of update.ops) {
			if (op.key === "textContent") {
				ele.textContent = op.value;
			} else if (op.key === "innerHTML") {
				ele.innerHTML = op.value;
			} else {
				ele.setAttribute(op.key, op.value);
			}
		}
	}
};
const observer = new ResizeObserver(function (entries) {
	if (ws.readyState !== WebSocket.OPEN) return;
	for (const entry of entries) {
		ws.send(JSON.stringify({
			kind: "resize",
			element: entry.target.id,
			width: Math.round(entry.contentRect.width),
			height: Math.round(entry.contentRect.height)
		}));
	}
});
for (const ele of document.querySelectorAll(".htmlwidget")) {
	observer.observe(ele);
}
`

const staticBootstrapJS = `
function evalMember(root, path) {
	const keys = path.split(".");
	let parent = root;
	for (let i = 0; i < keys.length - 1; i++) {
		parent = parent[keys[i]];
	}
	const leaf = keys[keys.length - 1];
	parent[leaf] = eval("(" + parent[leaf] + ")");
}
document.addEventListener("DOMContentLoaded", function () {
	const bindings = window.widgetBindings || {};
	for (const script of document.querySelectorAll("script[data-for]")) {
		const ele = document.getElementById(script.dataset.for);
		if (ele === null) continue;
		const binding = bindings[ele.dataset.widget];
		if (!binding) continue;
		const msg = JSON.parse(script.textContent);
		for (const path of msg.evals || []) {
			evalMember(msg.x, path);
		}
		const state = binding.initialize
			? binding.initialize(ele, ele.clientWidth, ele.clientHeight)
			: {};
		binding.render(ele, msg.x, state);
		if (binding.resize) {
			new ResizeObserver(function () {
				binding.resize(ele, ele.clientWidth, ele.clientHeight, state);
			}).observe(ele);
		}
	}
});
`
