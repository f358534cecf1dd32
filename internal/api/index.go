package api

import (
	"html/template"
	"net/http"

	"github.com/bryanchriswhite/DeskMirror/internal/app"
	"github.com/bryanchriswhite/DeskMirror/internal/logger"
	"github.com/bryanchriswhite/DeskMirror/internal/proxy"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>DeskMirror</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Ubuntu, sans-serif;
            max-width: 960px;
            margin: 40px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eee; }
        code { background: #f5f5f5; padding: 2px 6px; border-radius: 3px; }
        a { color: #1976d2; text-decoration: none; }
    </style>
</head>
<body>
    <div class="container">
        <h1>DeskMirror</h1>
        <p>{{len .}} window proxies</p>
        <table>
            <tr><th>Handle</th><th>Name</th><th>State</th><th>Priority</th><th>Mode</th><th></th></tr>
            {{range .}}
            <tr>
                <td><code>{{.Handle}}</code></td>
                <td>{{.Name}}</td>
                <td>{{.State}}{{if not .Valid}} (invalid){{end}}</td>
                <td>{{.EffectivePriority}}</td>
                <td>{{.CaptureMode}}</td>
                <td><a href="/api/windows/{{.Handle}}/stream">stream</a></td>
            </tr>
            {{end}}
        </table>
        <h3>API Endpoints:</h3>
        <ul>
            <li><a href="/api/health">/api/health</a></li>
            <li><a href="/api/windows">/api/windows</a></li>
            <li><a href="/api/proxies">/api/proxies</a></li>
            <li><a href="/api/config">/api/config</a></li>
            <li><code>/api/events</code> (websocket)</li>
        </ul>
    </div>
</body>
</html>`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var infos []proxy.Info
	s.ctx.Read(func(c *app.Context) {
		for _, o := range c.Proxies().Objects() {
			infos = append(infos, o.Info())
		}
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, infos); err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Failed to render index")
	}
}
