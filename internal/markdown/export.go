package markdown

import (
	"bytes"
	"fmt"
	"html/template"
)

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body {
            background-color: #333;
            color: #f8fafc;
            font-family: 'Inter', sans-serif;
            padding: 40px;
            display: flex;
            justify-content: center;
            line-height: 1.6;
            margin: 0;
        }
        .container {
            max-width: 900px;
            width: 100%;
            background-color: #1e293b;
            padding: 40px;
            border-radius: 12px;
            border: 1px solid #334155;
        }
        .markdown-body h1, .markdown-body h2, .markdown-body h3 { margin: 24px 0 12px; color: #fff; }
        .markdown-body h1 { border-bottom: 2px solid #334155; padding-bottom: 10px; }
        .markdown-body p { margin-bottom: 16px; }
        .markdown-body ul { margin-bottom: 16px; padding-left: 25px; }
        .markdown-body code { background-color: rgba(255, 255, 255, 0.1); padding: 3px 6px; border-radius: 4px; font-family: monospace; }
        .markdown-body pre { background-color: #0f172a; padding: 20px; border-radius: 8px; overflow-x: auto; border: 1px solid #334155; }
        .code-block-container { position: relative; }
        .copy-code-btn {
            position: absolute;
            top: 10px;
            right: 10px;
            background: rgba(255, 255, 255, 0.1);
            border: 1px solid rgba(255, 255, 255, 0.2);
            color: #94a3b8;
            padding: 5px 12px;
            border-radius: 4px;
            cursor: pointer;
        }
        @media print {
            body { background: white; color: black; padding: 0; }
            .container { border: none; max-width: 100%; }
        }
    </style>
</head>
<body>
    <div class="container">
        {{.Content}}
    </div>
    <script>
        document.querySelectorAll('.copy-code-btn').forEach(function (btn) {
            btn.addEventListener('click', function () {
                var code = btn.nextElementSibling.innerText;
                navigator.clipboard.writeText(code).then(function () {
                    var original = btn.textContent;
                    btn.textContent = 'Copied!';
                    setTimeout(function () { btn.textContent = original; }, 2000);
                });
            });
        });
    </script>
</body>
</html>
`))

// DefaultTitle is used by Document when no title is given.
const DefaultTitle = "AI Summary - Full View"

// Document wraps a fragment produced by Render in a standalone page with
// embedded styles and a script that wires up the code copy buttons.
// The fragment is trusted as is; it must come from Render.
func Document(fragment, title string) (string, error) {
	if title == "" {
		title = DefaultTitle
	}
	var buf bytes.Buffer
	err := documentTemplate.Execute(&buf, struct {
		Title   string
		Content template.HTML
	}{Title: title, Content: template.HTML(fragment)})
	if err != nil {
		return "", fmt.Errorf("failed to render export document: %w", err)
	}
	return buf.String(), nil
}
