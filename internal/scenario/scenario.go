// Package scenario reads and writes simulation requests as YAML or JSON
// scenario documents.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"

	"liquidity-mcs/internal/simulation"
)

// Format is a scenario document encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatFor infers the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	}
	return "", fmt.Errorf("unsupported scenario extension %q (want .yaml, .yml or .json)", filepath.Ext(path))
}

// Load reads a scenario file.
func Load(path string) (simulation.Request, error) {
	format, err := FormatFor(path)
	if err != nil {
		return simulation.Request{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return simulation.Request{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	req, err := Decode(f, format)
	if err != nil {
		return simulation.Request{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return req, nil
}

// Decode parses one scenario document. Unknown fields are rejected so typos
// in risk settings do not silently fall back to defaults.
func Decode(r io.Reader, format Format) (simulation.Request, error) {
	var req simulation.Request
	switch format {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&req); err != nil {
			if err == io.EOF {
				return req, fmt.Errorf("empty scenario document")
			}
			return req, fmt.Errorf("decode yaml: %w", err)
		}
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode json: %w", err)
		}
	default:
		return req, fmt.Errorf("unknown scenario format %q", format)
	}
	return req, nil
}

// DecodeString parses an inline document, sniffing JSON by its leading brace.
func DecodeString(doc string) (simulation.Request, error) {
	trimmed := strings.TrimSpace(doc)
	if trimmed == "" {
		return simulation.Request{}, fmt.Errorf("empty scenario document")
	}
	format := YAML
	if strings.HasPrefix(trimmed, "{") {
		format = JSON
	}
	return Decode(strings.NewReader(trimmed), format)
}

// Encode writes a scenario document.
func Encode(w io.Writer, req simulation.Request, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(req); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(req); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown scenario format %q", format)
}

// Save writes req to path, choosing the encoding from the extension.
func Save(path string, req simulation.Request) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, req, format); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create scenario dir: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	return nil
}

// Schema returns the JSON schema of a scenario document.
func Schema() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[simulation.Request](nil)
	if err != nil {
		return nil, fmt.Errorf("infer scenario schema: %w", err)
	}
	s.Title = "liquidity-mcs scenario"
	s.Description = "Inputs of one Monte Carlo liquidity simulation run"
	return s, nil
}
