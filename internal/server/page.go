package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// pageTemplate is the panel UI. It renders the state pushed over /api/events
// and calls the JSON API for every button.
var pageTemplate = template.Must(template.New("panel").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  body { background: #0f172a; color: #f8fafc; font-family: Inter, sans-serif; margin: 0; padding: 16px; }
  button { background: #3b82f6; border: 0; border-radius: 6px; color: #fff; cursor: pointer; padding: 8px 12px; margin: 4px 4px 4px 0; }
  button.secondary { background: #334155; }
  input { background: #1e293b; border: 1px solid #334155; border-radius: 6px; color: #f8fafc; padding: 6px; width: 100%; box-sizing: border-box; }
  .hidden { display: none; }
  #settings-panel { background: #1e293b; border-radius: 8px; margin-bottom: 12px; padding: 12px; }
  #model-list div { cursor: pointer; padding: 2px 0; }
  #error-msg { color: #f87171; }
  .markdown-body h1, .markdown-body h2, .markdown-body h3 { color: #93c5fd; }
  .markdown-body code { background: #334155; border-radius: 4px; padding: 1px 4px; }
  .code-block-container { position: relative; }
  .code-block-container pre { background: #020617; border-radius: 6px; overflow-x: auto; padding: 12px; }
  .copy-code-btn { position: absolute; right: 6px; top: 6px; font-size: 12px; }
</style>
</head>
<body>
<button id="settings-btn" class="secondary">Settings</button>
<div id="settings-panel" class="hidden">
  <label>Gemini API Key <input id="api-key" type="password" autocomplete="off"></label>
  <label>Model <input id="model-name"></label>
  <button id="check-models-btn" class="secondary">Check models</button>
  <button id="save-key">Save</button>
  <div id="model-list" class="hidden"></div>
</div>

<div id="initial-view">
  <button id="summarize-btn">Summarize lecture</button>
  <button id="fetch-subtitles-btn" class="secondary">Get transcript</button>
</div>
<div id="loading-view" class="hidden">
  <p id="loading-text"></p>
  <button id="cancel-btn" class="secondary">Cancel</button>
</div>
<div id="result-view" class="hidden">
  <button id="copy-btn" class="secondary">Copy to Clipboard</button>
  <button id="fullpage-btn" class="secondary">Open full page</button>
  <button id="reanalyze-btn" class="secondary">Regenerate</button>
  <button id="reset-btn" class="secondary">Back</button>
  <div id="summary-content"></div>
</div>
<div id="error-view" class="hidden">
  <p id="error-msg"></p>
  <button id="retry-btn">Try again</button>
</div>

<script>
(function () {
  const $ = (id) => document.getElementById(id);
  const views = { initial: 'initial-view', loading: 'loading-view', result: 'result-view', error: 'error-view' };
  let lastRun = '';

  async function call(method, path, body, headers) {
    const opts = { method: method, headers: Object.assign({ 'Content-Type': 'application/json' }, headers || {}) };
    if (body) opts.body = JSON.stringify(body);
    const res = await fetch(path, opts);
    const text = await res.text();
    let data = {};
    try { data = text ? JSON.parse(text) : {}; } catch (e) { data = {}; }
    if (!res.ok) throw new Error(data.error || res.statusText);
    return data;
  }

  function flash(btn, text) {
    const original = btn.textContent;
    btn.textContent = text;
    setTimeout(() => { btn.textContent = original; }, 2000);
  }

  function wireCodeButtons() {
    $('summary-content').querySelectorAll('.copy-code-btn').forEach((btn) => {
      btn.addEventListener('click', () => {
        const code = btn.nextElementSibling.querySelector('code').innerText;
        navigator.clipboard.writeText(code).then(() => flash(btn, 'Copied!'));
      });
    });
  }

  function render(state) {
    Object.keys(views).forEach((v) => $(views[v]).classList.toggle('hidden', state.view !== v));
    $('settings-panel').classList.toggle('hidden', !state.settingsOpen);
    $('loading-text').textContent = state.status || '';
    $('error-msg').textContent = state.error || '';
    if (!$('model-name').value) $('model-name').value = state.model || '';
    if (state.view === 'result' && state.runId !== lastRun) {
      lastRun = state.runId;
      $('summary-content').innerHTML = state.html || '';
      wireCodeButtons();
    }
    const list = $('model-list');
    if (state.models && state.models.length) {
      list.innerHTML = '';
      state.models.forEach((m) => {
        const div = document.createElement('div');
        div.textContent = m;
        div.title = 'Click to use this model';
        div.onclick = () => { $('model-name').value = m; list.classList.add('hidden'); };
        list.appendChild(div);
      });
      list.classList.remove('hidden');
    } else if (state.modelsMessage) {
      list.textContent = state.modelsMessage;
      list.classList.remove('hidden');
    } else {
      list.classList.add('hidden');
    }
  }

  function connect() {
    const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    const ws = new WebSocket(proto + location.host + '/api/events');
    ws.onmessage = (ev) => render(JSON.parse(ev.data));
    ws.onclose = () => setTimeout(connect, 1000);
  }

  const report = (e) => { $('error-msg').textContent = e.message; };
  const action = (path) => () => call('POST', path).catch(report);

  $('settings-btn').onclick = action('/api/settings/toggle');
  $('summarize-btn').onclick = action('/api/summarize');
  $('reanalyze-btn').onclick = action('/api/summarize');
  $('fetch-subtitles-btn').onclick = action('/api/transcript');
  $('cancel-btn').onclick = action('/api/cancel');
  $('reset-btn').onclick = action('/api/reset');
  $('retry-btn').onclick = action('/api/reset');
  $('copy-btn').onclick = () => call('POST', '/api/copy').then(() => flash($('copy-btn'), 'Copied!')).catch(report);
  $('fullpage-btn').onclick = () => window.open('/api/export', '_blank');
  $('save-key').onclick = () => call('PUT', '/api/settings', {
    geminiApiKey: $('api-key').value, geminiModel: $('model-name').value
  }).then((s) => { $('model-name').value = s.geminiModel; $('api-key').value = ''; }).catch(report);
  $('check-models-btn').onclick = () => call('GET', '/api/models', null, { 'X-Goog-Api-Key': $('api-key').value.trim() }).catch(report);

  connect();
})();
</script>
</body>
</html>
`))

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, struct{ Title string }{Title: "CourseLens"}); err != nil {
		s.logger.Error("Failed to render panel page.", zap.Error(err))
	}
}
