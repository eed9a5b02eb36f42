package convert

import (
	"testing"

	"hbc/common"
	"hbc/config"
	"hbc/convert/epub"
)

func TestExpandTemplate(t *testing.T) {
	book := &epub.Book{
		Title:       "The Power of Prolog",
		Author:      "Markus Triska",
		Description: "Prolog programs explained",
		Language:    "en",
		Chapters:    []epub.Chapter{{Title: "a"}, {Title: "b"}},
	}

	tests := []struct {
		name    string
		field   string
		format  common.OutputFmt
		want    string
		wantErr bool
	}{
		{"plain text", "book", common.OutputFmtEpub3, "book", false},
		{"title", "{{ .Title }}", common.OutputFmtEpub3, "The Power of Prolog", false},
		{"sprig functions", "{{ .Author | upper | replace \" \" \"_\" }}", common.OutputFmtEpub3, "MARKUS_TRISKA", false},
		{"format and language", "{{ .Language }}-{{ .Format }}", common.OutputFmtEpub2, "en-epub2", false},
		{"chapters", "{{ .Chapters }} chapters", common.OutputFmtEpub3, "2 chapters", false},
		{"context", "{{ .Context }}", common.OutputFmtEpub3, "name_template", false},
		{"parse error", "{{ .Title ", common.OutputFmtEpub3, "", true},
		{"unknown field", "{{ .Series }}", common.OutputFmtEpub3, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(book, config.OutputNameTemplateFieldName, tt.field, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}
