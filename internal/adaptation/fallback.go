package adaptation

import (
	"html/template"
	"strings"

	"github.com/brightclass/insight/internal/adaptation/domain"
)

// Fallback layouts rendered when the AI engine is unavailable. Each
// template keeps the source text verbatim inside its own structure.
var fallbackTemplates = map[string]*template.Template{
	domain.DifferenceDyslexia: template.Must(template.New("dyslexia").Parse(`<article class="adapted adapted-dyslexia">
<h2>Dyslexia-Friendly Version</h2>
{{if .Title}}<h3>{{.Title}}</h3>
{{end}}<div class="dyslexia-text" style="font-family: sans-serif; line-height: 2; letter-spacing: 0.05em;">
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}</div>
</article>`)),
	domain.DifferenceADHD: template.Must(template.New("adhd").Parse(`<article class="adapted adapted-adhd">
<h2>Focus-Friendly Version</h2>
{{if .Title}}<h3>{{.Title}}</h3>
{{end}}<div class="adhd-text">
{{range .Paragraphs}}<section class="chunk"><p>{{.}}</p></section>
{{end}}</div>
</article>`)),
	domain.DifferenceAutismSpectrum: template.Must(template.New("autism_spectrum").Parse(`<article class="adapted adapted-autism">
<h2>Clear and Literal Version</h2>
{{if .Title}}<h3>{{.Title}}</h3>
{{end}}<div class="literal-text">
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}</div>
</article>`)),
}

var genericFallback = template.Must(template.New("generic").Parse(`<article class="adapted adapted-simplified">
<h2>Simplified Version</h2>
{{if .Title}}<h3>{{.Title}}</h3>
{{end}}<div class="simplified-text">
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}</div>
</article>`))

type fallbackData struct {
	Title      string
	Paragraphs []string
}

// renderFallback produces the deterministic adaptation for one request.
func renderFallback(req domain.AdaptRequest) (string, error) {
	tmpl, ok := fallbackTemplates[strings.ToLower(strings.TrimSpace(req.LearningDifference))]
	if !ok {
		tmpl = genericFallback
	}

	data := fallbackData{
		Title:      strings.TrimSpace(req.Title),
		Paragraphs: splitParagraphs(req.Text),
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(text)}
	}
	return out
}
