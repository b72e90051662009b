package damagetrack

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// TypeGroups maps raw detector labels onto damage type groups so that
// synonymous codes, eg: the RDD dataset's D40 and a model's "Pothole",
// match and deduplicate as the same kind of defect.  The table is
// injectable since the raw label set depends on the detection model in
// use.
type TypeGroups struct {
	// byLabel resolves a raw label to its group name
	byLabel map[string]string
}

// DefaultGroupTable is the built-in grouping for the common RDD damage
// codes and their plain-name equivalents
func DefaultGroupTable() map[string][]string {
	return map[string][]string{
		"pothole":      {"D40", "D43", "D44", "Pothole", "Potholes"},
		"longitudinal": {"D00", "Longitudinal", "Longitudinal Crack"},
		"transverse":   {"D10", "Transverse", "Transverse Crack"},
		"alligator":    {"D20", "Alligator", "Alligator Crack"},
	}
}

// NewTypeGroups creates a TypeGroups from a group name to raw labels
// table.  A nil table uses the defaults.
func NewTypeGroups(table map[string][]string) *TypeGroups {

	if table == nil {
		table = DefaultGroupTable()
	}

	byLabel := make(map[string]string)

	for group, labels := range table {
		for _, label := range labels {
			byLabel[label] = group
		}
	}

	return &TypeGroups{byLabel: byLabel}
}

// GroupOf returns the type group for a raw label.  Labels not present in
// the table group to their own lowercased name so unknown damage types
// still track and deduplicate against themselves.
func (tg *TypeGroups) GroupOf(label string) string {

	if group, ok := tg.byLabel[label]; ok {
		return group
	}

	return strings.ToLower(label)
}

// Compatible reports whether two raw labels are considered the same kind
// of defect for matching and dedup purposes
func (tg *TypeGroups) Compatible(a, b string) bool {
	return a == b || tg.GroupOf(a) == tg.GroupOf(b)
}

// LoadGroupTable reads a type group table from the given text file.  Each
// line defines one group as "group: label, label, ...".  Blank lines and
// lines starting with # are skipped.
func LoadGroupTable(file string) (map[string][]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	table := make(map[string][]string)

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {

		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		group, rest, found := strings.Cut(line, ":")

		if !found {
			return nil, fmt.Errorf("invalid group line: %q", line)
		}

		group = strings.TrimSpace(group)

		for _, label := range strings.Split(rest, ",") {
			if label = strings.TrimSpace(label); label != "" {
				table[group] = append(table[group], label)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return table, nil
}
