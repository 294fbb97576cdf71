package server

import "net/http"

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>clippy</title>
<style>
body { margin: 0; font-family: ui-monospace, monospace; display: grid; grid-template-columns: 40% 60%; height: 100vh; }
#side { display: flex; flex-direction: column; border-right: 1px solid #ddd; }
#status { padding: 8px; background: #f5f5f5; }
#log { flex: 1; overflow: auto; margin: 0; padding: 8px; background: #111; color: #ddd; font-size: 12px; }
#chat { display: flex; }
#chat input { flex: 1; padding: 8px; }
iframe { width: 100%; height: 100%; border: 0; }
</style>
</head>
<body>
<div id="side">
  <div id="status">connecting...</div>
  <pre id="log"></pre>
  <form id="chat"><input id="msg" placeholder="Ask for a change..."><button>Send</button></form>
</div>
<iframe id="preview" title="preview"></iframe>
<script>
const log = document.getElementById("log");
const status = document.getElementById("status");
const preview = document.getElementById("preview");
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
function append(lines) {
  for (const l of lines) log.textContent += l + "\n";
  log.scrollTop = log.scrollHeight;
}
ws.onmessage = (ev) => {
  const m = JSON.parse(ev.data);
  if (m.type === "log") append(m.lines);
  if (m.type === "state") {
    if (m.state.logs) { log.textContent = ""; append(m.state.logs); }
    status.textContent = "sandbox: " + m.state.boot + " | preview: " + (m.state.url || m.state.preview) + (m.state.generating ? " | generating..." : "");
    if (m.state.url && preview.src !== m.state.url) preview.src = m.state.url;
  }
  if (m.type === "error") append(["error: " + m.message]);
};
ws.onclose = () => { status.textContent = "disconnected"; };
document.getElementById("chat").onsubmit = (e) => {
  e.preventDefault();
  const input = document.getElementById("msg");
  if (input.value.trim()) ws.send(JSON.stringify({type: "send", input: input.value}));
  input.value = "";
};
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
