// Package markdown turns the constrained markdown produced by summarization
// models into sanitised HTML fragments for the panel.
//
// It is deliberately a fixed sequence of regular-expression passes, not a
// parser: headings up to level three, bold, inline code, flat bullet lists,
// fenced code blocks and paragraphs. Nested emphasis is not supported.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	fenceRe   = regexp.MustCompile("(?s)```(.*?)```")
	h3Re      = regexp.MustCompile(`(?m)^### (.*)$`)
	h2Re      = regexp.MustCompile(`(?m)^## (.*)$`)
	h1Re      = regexp.MustCompile(`(?m)^# (.*)$`)
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	codeRe    = regexp.MustCompile("`([^`]+)`")
	itemRe    = regexp.MustCompile(`(?m)^[ \t]*[*-] (.*)$`)
	listRunRe = regexp.MustCompile(`(?m)^<li>.*</li>(?:\n<li>.*</li>)*`)
	chunkRe   = regexp.MustCompile(`\n[ \t]*\n\s*`)
	blockRe   = regexp.MustCompile(`^<(h\d|ul|ol|li|pre|div)`)

	emptyParaRe  = regexp.MustCompile(`<p></p>`)
	brBeforeLiRe = regexp.MustCompile(`(<br>\s*)+</li>`)
	brAfterHRe   = regexp.MustCompile(`</h(\d)>\s*<br>`)
)

// placeholder stands in for an extracted code block. It opens like a block
// tag so the paragraph pass leaves it alone, and cannot occur in escaped input.
func placeholder(i int) string {
	return `<pre-block id="` + strconv.Itoa(i) + `"/>`
}

const codeBlockTemplate = `<div class="code-block-container"><button class="copy-code-btn">Copy</button><pre><code>%s</code></pre></div>`

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "p", "br", "ul", "li", "strong", "code", "pre", "div", "button")
	p.AllowAttrs("class").
		Matching(regexp.MustCompile(`^(markdown-body|code-block-container|copy-code-btn)$`)).
		OnElements("div", "button")
	return p
}

// Render converts markdown to an HTML fragment wrapped in
// <div class="markdown-body">. Empty input yields "". Render never panics;
// input it cannot interpret is passed through as escaped text.
func Render(md string) string {
	if md == "" {
		return ""
	}

	text := escaper.Replace(strings.ReplaceAll(md, "\r\n", "\n"))

	var blocks []string
	text = fenceRe.ReplaceAllStringFunc(text, func(m string) string {
		code := strings.TrimSpace(m[3 : len(m)-3])
		blocks = append(blocks, fmt.Sprintf(codeBlockTemplate, code))
		return placeholder(len(blocks) - 1)
	})

	text = h3Re.ReplaceAllString(text, "<h3>${1}</h3>")
	text = h2Re.ReplaceAllString(text, "<h2>${1}</h2>")
	text = h1Re.ReplaceAllString(text, "<h1>${1}</h1>")
	text = boldRe.ReplaceAllString(text, "<strong>${1}</strong>")
	text = codeRe.ReplaceAllString(text, "<code>${1}</code>")
	text = itemRe.ReplaceAllString(text, "<li>${1}</li>")
	text = listRunRe.ReplaceAllString(text, "<ul>${0}</ul>")

	text = paragraphs(text)

	for i, block := range blocks {
		text = strings.Replace(text, placeholder(i), block, 1)
	}

	text = emptyParaRe.ReplaceAllString(text, "")
	text = brBeforeLiRe.ReplaceAllString(text, "</li>")
	text = brAfterHRe.ReplaceAllString(text, "</h${1}>")

	return policy.Sanitize(`<div class="markdown-body">` + text + `</div>`)
}

// paragraphs splits text on blank lines. Within each chunk, lines that open
// with a block tag are kept as they are and every run of other lines becomes
// one <p> with <br> between the lines.
func paragraphs(text string) string {
	var out strings.Builder
	for _, chunk := range chunkRe.Split(text, -1) {
		var run []string
		flush := func() {
			if len(run) > 0 {
				out.WriteString("<p>" + strings.Join(run, "<br>") + "</p>")
				run = run[:0]
			}
		}
		for _, line := range strings.Split(strings.TrimSpace(chunk), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if blockRe.MatchString(line) {
				flush()
				out.WriteString(line)
				continue
			}
			run = append(run, line)
		}
		flush()
	}
	return out.String()
}
