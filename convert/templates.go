package convert

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"hbc/common"
	"hbc/config"
	"hbc/convert/epub"
)

// Values is what template expansion has access to.
type Values struct {
	Context     string
	Title       string
	Author      string
	Description string
	Language    string
	Format      string
	Chapters    int
}

func expandTemplate(b *epub.Book, name config.TemplateFieldName, field string, format common.OutputFmt) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Option("missingkey=error").Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:     string(name),
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		Language:    b.Language,
		Format:      format.String(),
		Chapters:    len(b.Chapters),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand template field %s: %w", name, err)
	}
	return buf.String(), nil
}
