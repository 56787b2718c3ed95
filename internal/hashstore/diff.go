package hashstore

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
	"sigs.k8s.io/yaml"
)

// TableChanges lists keys that differ between two tables, each sorted.
type TableChanges struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	Changed []string `json:"changed,omitempty"`
}

// Empty reports whether the tables were equal.
func (c TableChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Compare returns the key-level changes from old to cur.
func Compare(old, cur Table) TableChanges {
	var c TableChanges
	for k, v := range cur {
		prev, ok := old[k]
		switch {
		case !ok:
			c.Added = append(c.Added, k)
		case prev != v:
			c.Changed = append(c.Changed, k)
		}
	}
	for k := range old {
		if _, ok := cur[k]; !ok {
			c.Removed = append(c.Removed, k)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Changed)
	return c
}

// DiffTables renders a dyff report between two tables. Equal tables yield
// an empty string.
func DiffTables(old, cur Table, useColor bool) (string, error) {
	if Compare(old, cur).Empty() {
		return "", nil
	}

	oldYAML, err := yaml.Marshal(old)
	if err != nil {
		return "", fmt.Errorf("serializing old table: %w", err)
	}
	curYAML, err := yaml.Marshal(cur)
	if err != nil {
		return "", fmt.Errorf("serializing new table: %w", err)
	}

	from, err := parseYAMLInput("old", oldYAML)
	if err != nil {
		return "", fmt.Errorf("parsing old table: %w", err)
	}
	to, err := parseYAMLInput("new", curYAML)
	if err != nil {
		return "", fmt.Errorf("parsing new table: %w", err)
	}

	report, err := dyff.CompareInputFiles(from, to)
	if err != nil {
		return "", fmt.Errorf("comparing tables: %w", err)
	}
	if len(report.Diffs) == 0 {
		return "", nil
	}

	return renderReport(report, useColor)
}

func parseYAMLInput(name string, data []byte) (ytbx.InputFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ytbx.InputFile{Location: name}, nil
	}

	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}

	return ytbx.InputFile{
		Location:  name,
		Documents: docs,
	}, nil
}

func renderReport(report dyff.Report, useColor bool) (string, error) {
	var buf bytes.Buffer

	w := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      !useColor,
		OmitHeader:        true,
	}
	if err := w.WriteReport(io.Writer(&buf)); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
