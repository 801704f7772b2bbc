package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml; anything else is json.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

type Auditor struct {
	AuditDir string
	Format   Format
}

func NewAuditor(auditDir string, format Format) *Auditor {
	return &Auditor{
		AuditDir: auditDir,
		Format:   format,
	}
}

// Save writes data under a random name in the configured format and
// returns the file path.
func (a *Auditor) Save(data any) (string, error) {
	return a.save(uuid.NewString(), data)
}

// SaveReport writes a run report named after its command and run id.
func (a *Auditor) SaveReport(r *Report) (string, error) {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	return a.save(fmt.Sprintf("%s_%s", r.Command, r.RunID), r)
}

func (a *Auditor) save(name string, data any) (string, error) {
	if err := a.ensureAuditDir(); err != nil {
		return "", fmt.Errorf("failed to ensure audit directory: %w", err)
	}

	content, err := Encode(data, a.Format)
	if err != nil {
		return "", err
	}

	path := filepath.Join(a.AuditDir, name+"."+string(a.formatOrDefault()))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write audit file: %w", err)
	}
	return path, nil
}

func (a *Auditor) formatOrDefault() Format {
	if a.Format == FormatYAML {
		return FormatYAML
	}
	return FormatJSON
}

// Encode renders data as indented JSON or as YAML. YAML output goes through
// the JSON marshalers of the values so both formats carry the same fields.
func Encode(data any, format Format) ([]byte, error) {
	if format == FormatYAML {
		out, err := yaml.MarshalWithOptions(data, yaml.UseJSONMarshaler())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data to YAML: %w", err)
		}
		return out, nil
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data to JSON: %w", err)
	}
	return out, nil
}

// ensureAuditDir creates the audit directory if it doesn't exist
func (a *Auditor) ensureAuditDir() error {
	if _, err := os.Stat(a.AuditDir); os.IsNotExist(err) {
		if err := os.MkdirAll(a.AuditDir, 0755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return nil
}
