package rules

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/mtwest2718/ukhe-finances/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml field names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct constraints and the cross-table rules:
// unique ids, relabels that refer to whitelisted labels, and no canonical
// category emitted by more than one place.
func (rs *RuleSet) Validate() error {
	if err := validate.Struct(rs); err != nil {
		return apperrors.NewConfigError("invalid rules", err)
	}

	seenID := make(map[int]bool, len(rs.Tables))
	emittedBy := make(map[string]int)
	for i := range rs.Tables {
		t := &rs.Tables[i]
		if seenID[t.ID] {
			return apperrors.NewConfigError(fmt.Sprintf("duplicate rule for table %d", t.ID), nil)
		}
		seenID[t.ID] = true

		listed := make(map[string]bool, len(t.Categories))
		for _, c := range t.Categories {
			if listed[c] {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %d: category %q listed twice", t.ID, c), nil)
			}
			listed[c] = true
		}
		for from := range t.Relabel {
			if !listed[from] {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %d: relabel source %q is not a whitelisted category", t.ID, from), nil)
			}
		}

		local := make(map[string]bool, len(t.Categories))
		for _, name := range t.CanonicalCategories() {
			if local[name] {
				return apperrors.NewConfigError(
					fmt.Sprintf("table %d: relabel target %q collides with another category", t.ID, name), nil)
			}
			local[name] = true
			if other, ok := emittedBy[name]; ok {
				return apperrors.NewConfigError(
					fmt.Sprintf("category %q is emitted by tables %d and %d; relabel one of them", name, other, t.ID), nil)
			}
			emittedBy[name] = t.ID
		}
	}
	return nil
}
