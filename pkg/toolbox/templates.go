package toolbox

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

const documentSeparator = "\n\n---\n\n"

var (
	webResultsTemplate = mustTemplate("web", `{{- range $i, $r := . -}}`+
		`{{ if $i }}`+documentSeparator+`{{ end }}`+
		`<Document source="{{ $r.URL }}" score="{{ $r.Score }}">`+"\n"+
		`{{ $r.Content | default $r.RawContent | trim }}`+"\n"+
		`</Document>`+
		`{{- end -}}`)

	wikiDocumentsTemplate = mustTemplate("wiki", `{{- $max := .MaxChars -}}`+
		`{{- range $i, $d := .Docs -}}`+
		`{{ if $i }}`+documentSeparator+`{{ end }}`+
		`<Document source="{{ $d.Source }}" page="{{ $d.Title }}"/>`+"\n"+
		`{{ if gt $max 0 }}{{ $d.Content | trim | trunc $max }}{{ else }}{{ $d.Content | trim }}{{ end }}`+"\n"+
		`</Document>`+
		`{{- end -}}`)

	wikiSummaryTemplate = mustTemplate("wiki-summary", `{{- range $i, $d := . -}}`+
		`{{ if $i }}`+"\n\n"+`{{ end }}`+
		`Page: {{ $d.Title }}`+"\n"+
		`Summary: {{ $d.Content | trim }}`+
		`{{- end -}}`)

	transcriptTemplate = mustTemplate("transcript", "Transcript:\n{{ join \"\\n\" .Lines }}")
)

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text))
}

func render(t *template.Template, data interface{}) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, "could not render %s", t.Name())
	}
	return sb.String(), nil
}
