package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specloom/loom/internal/ir"
)

var constraintTypes = []string{"unique", "check", "foreign_key"}

// checkConstraints validates the constraints section and per-field bound
// declarations (CNS-001 through CNS-004).
func checkConstraints(ctx *docContext) []Error {
	var errs []Error
	errs = append(errs, checkConstraintSection(ctx)...)
	errs = append(errs, checkFieldBounds(ctx)...)
	return errs
}

func checkConstraintSection(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error

	for _, name := range ir.SortedKeys(doc.Constraints) {
		c := doc.Constraints[name]
		base := "constraints." + name

		if c.Type != "" && !contains(constraintTypes, c.Type) {
			errs = append(errs, Error{
				Path:         base + ".type",
				Message:      fmt.Sprintf("Invalid constraint type '%s'. Valid: %s", c.Type, strings.Join(constraintTypes, ", ")),
				Severity:     SeverityError,
				Code:         CodeValueNotInSet,
				Category:     CategoryConstraint,
				Actual:       c.Type,
				ValidOptions: constraintTypes,
			})
		}

		if c.Entity != "" && ctx.hasEntity(c.Entity) {
			if c.Type == "unique" {
				for _, field := range c.Fields {
					if _, ok := ctx.entityField(c.Entity, field); !ok {
						errs = append(errs, Error{
							Path:         base + ".fields",
							Message:      fmt.Sprintf("Unique constraint field '%s' not found in entity '%s'", field, c.Entity),
							Severity:     SeverityError,
							Code:         CodeRefUnknownField,
							Category:     CategoryConstraint,
							Actual:       field,
							ValidOptions: ctx.fieldNames(c.Entity),
						})
					}
				}
			}
		}

		if c.Type == "foreign_key" && c.References != nil {
			if ref := c.References.Entity; ref != "" && !ctx.hasEntity(ref) {
				errs = append(errs, Error{
					Path:     base + ".references.entity",
					Message:  fmt.Sprintf("Foreign key references unknown entity '%s'", ref),
					Severity: SeverityError,
					Code:     CodeRefUnknownEntity,
					Category: CategoryConstraint,
					Actual:   ref,
				})
			}
		}
	}

	return errs
}

// checkFieldBounds enforces per-field constraint sanity: numeric bounds in
// order (CNS-001), length bounds on string-like types only (CNS-002),
// compiling patterns (CNS-003), length bounds in order (CNS-004).
func checkFieldBounds(ctx *docContext) []Error {
	doc := ctx.doc
	var errs []Error

	for _, entName := range ir.SortedKeys(doc.Entities) {
		ent := doc.Entities[entName]
		for _, fieldName := range ir.SortedKeys(ent.Fields) {
			f := ent.Fields[fieldName]
			base := fmt.Sprintf("entities.%s.fields.%s", entName, fieldName)

			stringLike := f.Type.Name == ir.TypeString || f.Type.Name == "text" || f.Type.IsEnum()

			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				errs = append(errs, Error{
					Path:     base,
					Message:  fmt.Sprintf("min (%v) cannot be greater than max (%v)", *f.Min, *f.Max),
					Severity: SeverityError,
					Code:     CodeConstraintMinMax,
					Category: CategoryConstraint,
				})
			}

			if stringLike {
				if f.Min != nil {
					errs = append(errs, Error{
						Path:     base + ".min",
						Message:  "Use 'minLength' instead of 'min' for string fields",
						Severity: SeverityError,
						Code:     CodeConstraintBadBound,
						Category: CategoryConstraint,
					})
				}
				if f.Max != nil {
					errs = append(errs, Error{
						Path:     base + ".max",
						Message:  "Use 'maxLength' instead of 'max' for string fields",
						Severity: SeverityError,
						Code:     CodeConstraintBadBound,
						Category: CategoryConstraint,
					})
				}
			}

			if f.Pattern != "" {
				if _, err := regexp.Compile(f.Pattern); err != nil {
					errs = append(errs, Error{
						Path:     base + ".pattern",
						Message:  fmt.Sprintf("Invalid regex pattern: %v", err),
						Severity: SeverityError,
						Code:     CodeConstraintBadPattern,
						Category: CategoryConstraint,
						Actual:   f.Pattern,
					})
				}
			}

			if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
				errs = append(errs, Error{
					Path:     base,
					Message:  fmt.Sprintf("minLength (%d) cannot be greater than maxLength (%d)", *f.MinLength, *f.MaxLength),
					Severity: SeverityError,
					Code:     CodeConstraintLengths,
					Category: CategoryConstraint,
				})
			}
		}
	}

	return errs
}
