package api

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Nyaya RAG</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #fdf8f0; color: #1f2937; max-width: 640px; margin: 4rem auto; padding: 0 1rem; }
  h1 { font-size: 1.6rem; margin-bottom: 0.25rem; }
  .subtitle { color: #6b7280; margin-bottom: 2rem; }
  .endpoint { font-family: Menlo, monospace; color: #9a3412; }
  li { margin-bottom: 0.4rem; }
</style>
</head>
<body>
  <h1>Nyaya RAG</h1>
  <p class="subtitle">Question answering over the Constitution of India.</p>
  <ul>
    <li><span class="endpoint">POST /api/chat</span> ask a question</li>
    <li><span class="endpoint">GET /api/constitution</span> browse parts and articles</li>
    <li><span class="endpoint">POST /api/embed</span> rebuild the index</li>
    <li><a href="/health" class="endpoint">GET /health</a> store health</li>
    <li><span class="endpoint">/mcp</span> MCP Streamable HTTP</li>
  </ul>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
