package checks

import (
	"strings"

	"github.com/fulmenhq/quench/internal/walker"
	"github.com/fulmenhq/quench/pkg/config"
)

// licenseCheck verifies that source files open with the configured license
// header literal. With no header configured the check passes trivially.
type licenseCheck struct {
	cfg config.LicenseConfig
}

func newLicenseCheck(cfg *config.Config) *licenseCheck {
	return &licenseCheck{cfg: cfg.License}
}

func (c *licenseCheck) Name() string { return "license" }

func (c *licenseCheck) Cacheable() bool { return true }

func (c *licenseCheck) RequiredFileClasses() []walker.ClassKind {
	return []walker.ClassKind{walker.KindSource}
}

func (c *licenseCheck) RunFile(file *walker.WalkedFile, content string, ctx *Context) []Violation {
	if c.cfg.Header == "" {
		return nil
	}
	limit := c.cfg.MaxHeaderLines
	if limit <= 0 {
		limit = 10
	}
	lines := splitLines(content)
	if len(lines) > limit {
		lines = lines[:limit]
	}
	for _, line := range lines {
		if strings.Contains(line, c.cfg.Header) {
			return nil
		}
	}
	return []Violation{{
		Check:     c.Name(),
		Path:      file.RelPath,
		Line:      1,
		Kind:      "missing_license",
		Threshold: limit,
		Advice:    "add the license header to the top of the file",
	}}
}

func (c *licenseCheck) Aggregate(ctx *Context, perFile []Violation) ([]Violation, Metrics) {
	missing := 0
	for _, v := range perFile {
		if v.Kind == "missing_license" {
			missing++
		}
	}
	return perFile, Metrics{"files_missing_header": missing}
}
