package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"ntl-systoolbox/internal/audit"
	"ntl-systoolbox/internal/fingerprint"
)

// Format selects the machine-readable encoding of an audit.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("format inconnu %q (json ou yaml)", s)
}

// Write encodes r in format f.
func Write(w io.Writer, f Format, r audit.Report) error {
	if f == FormatYAML {
		return WriteYAML(w, r)
	}
	return WriteJSON(w, r.Descriptors)
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ErrorJSON is the one-element array printed when an audit cannot start.
func ErrorJSON(w io.Writer, err error) error {
	return WriteJSON(w, []map[string]string{{"error": err.Error()}})
}

// yamlReport is the document written by WriteYAML: run metadata followed by
// one entry per host.
type yamlReport struct {
	Generated  string                         `yaml:"generated"`
	StartedAt  string                         `yaml:"started_at"`
	FinishedAt string                         `yaml:"finished_at"`
	HostCount  int                            `yaml:"host_count"`
	Failures   int                            `yaml:"failures"`
	Hosts      []fingerprint.SystemDescriptor `yaml:"hosts"`
}

var yamlNow = time.Now

// WriteYAML serializes r with two-space indentation.
func WriteYAML(w io.Writer, r audit.Report) error {
	doc := yamlReport{
		Generated:  yamlNow().Format(time.RFC3339),
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		HostCount:  r.HostCount(),
		Failures:   r.Failures(),
		Hosts:      r.Descriptors,
	}
	if doc.Hosts == nil {
		doc.Hosts = []fingerprint.SystemDescriptor{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		_ = enc.Close()
		return err
	}
	_ = enc.Close()
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(buf.Bytes()); err != nil {
		return err
	}
	return bw.Flush()
}
