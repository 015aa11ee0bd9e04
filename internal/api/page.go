package api

import (
	"html/template"
	"net/http"

	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Index Sheet Sync</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-top: 1em; }
td, th { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.failed { color: #b00; }
</style>
</head>
<body>
<h1>Index Sheet Sync</h1>
<p>Workbook: <code>{{.Output}}</code></p>
<button id="run" onclick="startRun()" {{if .Running}}disabled{{end}}>Fetch &amp; Update</button>
<span id="status">{{if .Running}}Running...{{end}}</span>
<table>
<tr><th>Series</th><th>Status</th><th>Added</th><th>Total</th><th>Attempts</th><th>Error</th></tr>
{{range .Series}}<tr><td>{{.Name}}</td>{{with index $.Lines .Name}}<td class="{{.Status}}">{{.Status}}</td><td>{{.Added}}</td><td>{{.Total}}</td><td>{{.Attempts}}</td><td>{{.Error}}</td>{{else}}<td colspan="5">-</td>{{end}}</tr>
{{end}}
</table>
{{with .Latest}}<p>Last run {{.FinishedAt.Format "2006-01-02 15:04:05"}}{{if .Error}}, aborted: <span class="failed">{{.Error}}</span>{{end}}</p>{{end}}
<script>
function startRun() {
  const btn = document.getElementById('run');
  const status = document.getElementById('status');
  btn.disabled = true;
  status.textContent = 'Running...';
  fetch('/api/runs', { method: 'POST' }).then(r => {
    if (r.status === 409) { status.textContent = 'A run is already in progress'; }
    poll();
  }).catch(e => { status.textContent = e; btn.disabled = false; });
}
function poll() {
  fetch('/health').then(r => r.json()).then(h => {
    if (h.running) { setTimeout(poll, 2000); return; }
    location.reload();
  });
}
{{if .Running}}poll();{{end}}
</script>
</body>
</html>
`))

type indexPage struct {
	Output  string
	Running bool
	Series  []utils.SeriesConfig
	Latest  *updater.RunReport
	Lines   map[string]*updater.SeriesReport
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page := indexPage{
		Output:  s.config.Output.Path,
		Running: s.runner.Running(),
		Series:  s.config.Series,
		Lines:   map[string]*updater.SeriesReport{},
	}
	if latest, ok := s.runner.Latest(); ok {
		page.Latest = latest
		for i := range latest.Series {
			page.Lines[latest.Series[i].Name] = &latest.Series[i]
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, page); err != nil {
		s.logger.Error("Failed to render index page: %v", err)
	}
}
