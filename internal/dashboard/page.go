// Package dashboard renders the static status site and serves it.
package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"time"

	"github.com/qepting91/postwatch/internal/domain"
	"github.com/qepting91/postwatch/internal/storage"
)

// IndexFile is the status page's file name inside the output directory.
const IndexFile = "index.html"

// Card is one source on the status page.
type Card struct {
	Label       string
	URL         string
	Unavailable bool
	HasNew      bool
	NewCount    int
	Items       []domain.ScrapedItem
}

type Page struct {
	Day         domain.Day
	GeneratedAt string
	Cards       []Card
	NewToday    bool
	TrendFile   string
}

// BuildPage lays out a run's sources in sources-file order. novelBySource is
// keyed by source URL.
func BuildPage(day domain.Day, at time.Time, results []domain.SourceResult, novelBySource map[string]int) Page {
	p := Page{
		Day:         day,
		GeneratedAt: at.Format("2006-01-02 15:04:05"),
		Cards:       make([]Card, 0, len(results)),
		TrendFile:   TrendFile,
	}
	for _, r := range results {
		n := novelBySource[r.URL]
		p.Cards = append(p.Cards, Card{
			Label:       r.Label,
			URL:         r.URL,
			Unavailable: r.Failed(),
			HasNew:      n > 0,
			NewCount:    n,
			Items:       r.Items,
		})
		if n > 0 {
			p.NewToday = true
		}
	}
	return p
}

var pageTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>postwatch {{.Day}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:960px;margin:0 auto;padding:1rem;background:#f6f7f9;color:#222}
.card{background:#fff;border-radius:8px;padding:1rem;margin:1rem 0;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.card h2{font-size:1.1rem;margin:0 0 .5rem}
.new{background:#e0342f;color:#fff;border-radius:4px;padding:0 .4rem;font-size:.8rem;margin-left:.4rem}
.down{color:#999}
.today{font-weight:bold}
.today .stamp{color:#e0342f}
.empty{color:#999;font-style:italic}
footer{color:#666;font-size:.9rem;margin-top:2rem}
</style>
</head>
<body>
<h1>postwatch</h1>
<p>Updated {{.GeneratedAt}} · <a href="{{.TrendFile}}">trend</a></p>
{{range .Cards}}<div class="card{{if .Unavailable}} down{{end}}">
<h2><a href="{{.URL}}">{{.Label}}</a>{{if .HasNew}}<span class="new">new {{.NewCount}}</span>{{end}}</h2>
{{if .Items}}<ul>
{{range .Items}}<li{{if .ObservedAsToday}} class="today"{{end}}><a href="{{.Link}}">{{.Title}}</a>{{if .RawTime}} <span class="stamp">{{.RawTime}}</span>{{end}}</li>
{{end}}</ul>{{else}}<p class="empty">no recent posts</p>{{end}}
</div>
{{end}}<footer>{{if .NewToday}}New posts found today ({{.Day}}).{{else}}No new posts today ({{.Day}}).{{end}}</footer>
</body>
</html>
`))

var placeholderTmpl = template.Must(template.New("placeholder").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>postwatch</title></head>
<body>
<h1>postwatch</h1>
<p>No sources file found at <code>{{.}}</code>.</p>
<p>Create it with one profile URL per line, then run <code>postwatch run</code> again.</p>
</body>
</html>
`))

// Render writes the status page for p to w.
func Render(w io.Writer, p Page) error {
	return pageTmpl.Execute(w, p)
}

// WritePage renders p to outputDir/index.html atomically.
func WritePage(outputDir string, p Page) error {
	var buf bytes.Buffer
	if err := Render(&buf, p); err != nil {
		return fmt.Errorf("render status page: %w", err)
	}
	return writeOutput(outputDir, IndexFile, buf.Bytes())
}

// WritePlaceholder replaces the status page with a note that sourcesFile is missing.
func WritePlaceholder(outputDir, sourcesFile string) error {
	var buf bytes.Buffer
	if err := placeholderTmpl.Execute(&buf, sourcesFile); err != nil {
		return fmt.Errorf("render placeholder: %w", err)
	}
	return writeOutput(outputDir, IndexFile, buf.Bytes())
}

func writeOutput(outputDir, name string, data []byte) error {
	if err := storage.WriteFileAtomic(filepath.Join(outputDir, name), data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
