package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/use-agent/scrapeform/models"
)

// Defaults for a job file that leaves fields out.
const (
	DefaultField    = "ContactSection"
	DefaultXPath    = `//*[@id="page-content"]/div/div/section[3]/div/div[4]`
	DefaultFallback = "No contact available"
)

// JobFile describes what the batch submitter scrapes from every URL.
type JobFile struct {
	// Elements are sent with every job. Their URL is filled per job.
	Elements []models.Element `yaml:"elements"`

	// Field names the element whose first text is collected.
	Field string `yaml:"field"`

	// URLs are scraped in order. URLsFile is read when URLs is empty.
	URLs     []string `yaml:"urls"`
	URLsFile string   `yaml:"urls_file"`

	// Fallback is recorded when the field has no text.
	Fallback string `yaml:"fallback"`
}

// DefaultJobFile collects the contact section of each page.
func DefaultJobFile() *JobFile {
	jf := &JobFile{}
	jf.applyDefaults()
	return jf
}

// LoadJobFile reads and validates a YAML job file.
func LoadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read job file: %w", err)
	}
	return ParseJobFile(data)
}

// ParseJobFile decodes a YAML job file and fills in defaults.
func ParseJobFile(data []byte) (*JobFile, error) {
	var jf JobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("batch: parse job file: %w", err)
	}
	jf.applyDefaults()
	if err := jf.validate(); err != nil {
		return nil, err
	}
	return &jf, nil
}

func (jf *JobFile) applyDefaults() {
	if jf.Field == "" {
		jf.Field = DefaultField
	}
	if jf.Fallback == "" {
		jf.Fallback = DefaultFallback
	}
	if len(jf.Elements) == 0 {
		jf.Elements = []models.Element{{Name: DefaultField, XPath: DefaultXPath}}
	}
}

func (jf *JobFile) validate() error {
	found := false
	for i, el := range jf.Elements {
		if strings.TrimSpace(el.Name) == "" || strings.TrimSpace(el.XPath) == "" {
			return models.NewJobError(models.ErrCodeInvalidInput,
				fmt.Sprintf("element %d needs both a name and an xpath", i), nil)
		}
		if el.Name == jf.Field {
			found = true
		}
	}
	if !found {
		return models.NewJobError(models.ErrCodeInvalidInput,
			fmt.Sprintf("field %q does not name any element", jf.Field), nil)
	}
	return nil
}

// ElementsFor returns the job's elements stamped with url.
func (jf *JobFile) ElementsFor(url string) []models.Element {
	out := make([]models.Element, len(jf.Elements))
	for i, el := range jf.Elements {
		el.URL = url
		out[i] = el
	}
	return out
}

// LoadURLs reads a JSON array of URLs.
func LoadURLs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read urls: %w", err)
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("batch: parse urls %s: %w", path, err)
	}
	return urls, nil
}

// ResolveURLs returns the inline URLs, or the contents of URLsFile.
func (jf *JobFile) ResolveURLs() ([]string, error) {
	if len(jf.URLs) > 0 {
		return jf.URLs, nil
	}
	if jf.URLsFile == "" {
		return nil, models.NewJobError(models.ErrCodeInvalidInput, "job file lists no urls", nil)
	}
	return LoadURLs(jf.URLsFile)
}
