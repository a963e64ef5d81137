package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
	"github.com/mtwest2718/ukhe-finances/pkg/contracts/domain"
)

//go:embed tables.yaml
var defaultRules []byte

// DefaultCategoryIndex selects the last metadata column as the category
const DefaultCategoryIndex = -1

// Filter keeps only rows whose column equals value
type Filter struct {
	Column string `yaml:"column" validate:"required"`
	Value  string `yaml:"value" validate:"required"`
}

// TableRule describes how one table id is narrowed to long records
type TableRule struct {
	ID            int               `yaml:"id" validate:"gt=0"`
	Name          string            `yaml:"name"`
	Source        domain.SourceKind `yaml:"source" validate:"omitempty,oneof=auto csv zip xlsx"`
	File          string            `yaml:"file"`
	Filters       []Filter          `yaml:"filters" validate:"dive"`
	DropColumns   []string          `yaml:"drop_columns" validate:"dive,required"`
	DropPositions []int             `yaml:"drop_positions"`
	CategoryIndex *int              `yaml:"category_index"`
	Categories    []string          `yaml:"categories" validate:"min=1,dive,required"`
	Relabel       map[string]string `yaml:"relabel" validate:"dive,keys,required,endkeys,required"`

	whitelist map[string]struct{}
}

// RuleSet is the full declarative configuration for a run
type RuleSet struct {
	HeaderRows    int         `yaml:"header_rows" validate:"gte=0"`
	ExcludedYears []string    `yaml:"excluded_years" validate:"dive,required"`
	Tables        []TableRule `yaml:"tables" validate:"min=1,dive"`

	byID map[int]*TableRule
}

// Default returns the embedded rule set
func Default() (*RuleSet, error) {
	return Parse(defaultRules)
}

// DefaultYAML returns the embedded rule document, for printing or as a template
func DefaultYAML() []byte {
	out := make([]byte, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// LoadFile reads and validates a rule set from disk
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("read rules file %s", path), err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML rule document
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.UnmarshalStrict(data, &rs); err != nil {
		return nil, apperrors.NewConfigError("decode rules", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	rs.index()
	return &rs, nil
}

func (rs *RuleSet) index() {
	rs.byID = make(map[int]*TableRule, len(rs.Tables))
	for i := range rs.Tables {
		t := &rs.Tables[i]
		if t.Source == "" {
			t.Source = domain.SourceAuto
		}
		t.whitelist = make(map[string]struct{}, len(t.Categories))
		for _, c := range t.Categories {
			t.whitelist[c] = struct{}{}
		}
		rs.byID[t.ID] = t
	}
}

// Lookup returns the rule for a table id
func (rs *RuleSet) Lookup(id int) (*TableRule, bool) {
	t, ok := rs.byID[id]
	return t, ok
}

// IDs returns every configured table id in ascending order
func (rs *RuleSet) IDs() []int {
	ids := make([]int, 0, len(rs.Tables))
	for _, t := range rs.Tables {
		ids = append(ids, t.ID)
	}
	sort.Ints(ids)
	return ids
}

// Select returns the rules for ids, or every rule when ids is empty.
// Unknown ids are a configuration error.
func (rs *RuleSet) Select(ids []int) ([]*TableRule, error) {
	if len(ids) == 0 {
		ids = rs.IDs()
	}
	selected := make([]*TableRule, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		t, ok := rs.Lookup(id)
		if !ok {
			return nil, apperrors.NewConfigError(fmt.Sprintf("no rule for table %d", id), nil)
		}
		selected = append(selected, t)
	}
	return selected, nil
}

// IsExcludedYear reports whether rows for year are discarded on load
func (rs *RuleSet) IsExcludedYear(year string) bool {
	for _, y := range rs.ExcludedYears {
		if y == year {
			return true
		}
	}
	return false
}

// Categories returns every canonical category the rule set can emit, sorted
func (rs *RuleSet) Categories() []string {
	var out []string
	for i := range rs.Tables {
		out = append(out, rs.Tables[i].CanonicalCategories()...)
	}
	sort.Strings(out)
	return out
}

// CategoryPosition returns the metadata-relative index of the category column
func (t *TableRule) CategoryPosition() int {
	if t.CategoryIndex == nil {
		return DefaultCategoryIndex
	}
	return *t.CategoryIndex
}

// Canonical maps a raw category label to the name it is published under.
// ok is false when the label is not whitelisted for this table.
func (t *TableRule) Canonical(label string) (name string, ok bool) {
	if _, ok = t.whitelist[label]; !ok {
		return "", false
	}
	if renamed, has := t.Relabel[label]; has {
		return renamed, true
	}
	return label, true
}

// CanonicalCategories returns the whitelist with relabels applied
func (t *TableRule) CanonicalCategories() []string {
	out := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		if renamed, ok := t.Relabel[c]; ok {
			out = append(out, renamed)
			continue
		}
		out = append(out, c)
	}
	return out
}

// FileCandidates returns the file names to look for, in preference order
func (t *TableRule) FileCandidates() []string {
	if t.File != "" {
		return []string{t.File}
	}
	base := fmt.Sprintf("table-%d", t.ID)
	switch t.Source {
	case domain.SourceCSV:
		return []string{base + ".csv"}
	case domain.SourceZip:
		return []string{base + ".zip"}
	case domain.SourceXLSX:
		return []string{base + ".xlsx"}
	default:
		return []string{base + ".zip", base + ".csv", base + ".xlsx"}
	}
}
