package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"hbc/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	BookConfig struct {
		Title       string `yaml:"title" validate:"required"`
		Author      string `yaml:"author" validate:"required"`
		Description string `yaml:"description"`
		Language    string `yaml:"language" validate:"required,bcp47_language_tag"`
	}

	// SiteConfig describes the web site the source pages were published on.
	// Relative links are made absolute against Origin, FooterLink is the
	// self-referential link which starts site footer on every page.
	SiteConfig struct {
		Origin     string `yaml:"origin" validate:"required,http_url"`
		FooterLink string `yaml:"footer_link" validate:"required,startswith=/"`
	}

	SourceConfig struct {
		Root        string   `yaml:"root" sanitize:"path_clean"`
		TOC         string   `yaml:"toc"`
		Stylesheet  string   `yaml:"stylesheet"`
		FallbackDir string   `yaml:"fallback_dir" validate:"required"`
		IndexURLs   []string `yaml:"index_urls" validate:"dive,required"`
	}

	StagingConfig struct {
		Dir          string `yaml:"dir" sanitize:"path_clean" validate:"required"`
		ManifestName string `yaml:"manifest_name" validate:"required"`
		TOCPageName  string `yaml:"toc_page_name" validate:"required"`
	}

	OutputConfig struct {
		Path          string           `yaml:"path" sanitize:"path_clean"`
		Format        common.OutputFmt `yaml:"format" validate:"gte=0"`
		NameTemplate  string           `yaml:"name_template"`
		Transliterate bool             `yaml:"file_name_transliterate"`
		FixZip        bool             `yaml:"fix_zip"`
		Overwrite     bool             `yaml:"overwrite"`
	}

	CoverConfig struct {
		Generate  bool            `yaml:"generate"`
		Format    common.CoverFmt `yaml:"format" validate:"gte=0"`
		ImagePath string          `yaml:"image_path" sanitize:"assure_file_access"`
		Quality   int             `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Book      BookConfig     `yaml:"book"`
		Site      SiteConfig     `yaml:"site"`
		Source    SourceConfig   `yaml:"source"`
		Staging   StagingConfig  `yaml:"staging"`
		Output    OutputConfig   `yaml:"output"`
		Cover     CoverConfig    `yaml:"cover"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitizing failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
