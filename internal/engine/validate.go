package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"autocrud/internal/metadata"
	"autocrud/internal/store"
)

// FileUpload carries the metadata and content of one submitted file field.
type FileUpload struct {
	Filename string
	Size     int64
	Mime     string
	Content  []byte
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate executes a synthesized rule set against the submitted input,
// aggregating every field failure instead of stopping at the first. Unique
// constraints run against q; files holds uploads for file-typed fields.
func Validate(ctx context.Context, q store.Querier, dialect store.Dialect, reg *metadata.Registry, rs *RuleSet, input map[string]any, files map[string]*FileUpload) ([]ErrorDetail, error) {
	var details []ErrorDetail

	for _, entry := range rs.Entries {
		field := entry.Field
		value, present := input[field.Field]
		if field.IsFile() {
			if up, ok := files[field.Field]; ok {
				value, present = up, true
			}
		}
		empty := isEmpty(value)

		for _, constraint := range entry.Constraints {
			switch constraint.Kind {
			case ConstraintRequired:
				if !present || empty {
					details = append(details, ErrorDetail{
						Field: field.Field, Rule: "required",
						Message: fmt.Sprintf("The %s field is required", field.Name),
					})
				}
			case ConstraintNullable:
				// no-op marker; empty optional values skip the rest below
			case ConstraintUnique:
				if empty {
					continue
				}
				conflict, err := hasUniqueConflict(ctx, q, dialect, constraint.Unique, value)
				if err != nil {
					return nil, err
				}
				if conflict {
					details = append(details, ErrorDetail{
						Field: field.Field, Rule: "unique",
						Message: fmt.Sprintf("The %s has already been taken", field.Name),
					})
				}
			case ConstraintCustom:
				fn, ok := reg.Validator(constraint.Validator)
				if !ok {
					// Synthesize already vetted the name; a miss here means the
					// registry changed underneath us.
					return nil, NewAppError("UNKNOWN_VALIDATOR", 500,
						fmt.Sprintf("Custom validator %s is not registered", constraint.Validator))
				}
				if msg := fn(&field, value, input); msg != "" {
					details = append(details, ErrorDetail{Field: field.Field, Rule: constraint.Validator, Message: msg})
				}
			default:
				if empty {
					continue
				}
				details = append(details, checkValue(field, constraint, value)...)
			}
		}
	}

	return details, nil
}

// checkValue runs the format constraints that need no external state.
func checkValue(field metadata.Field, c Constraint, value any) []ErrorDetail {
	fail := func(rule, msg string) []ErrorDetail {
		return []ErrorDetail{{Field: field.Field, Rule: rule, Message: msg}}
	}

	switch c.Kind {
	case ConstraintMaxLength:
		if s, ok := value.(string); ok && len(s) > c.Max {
			return fail("max_length", fmt.Sprintf("The %s may not be longer than %d characters", field.Name, c.Max))
		}
	case ConstraintEmail:
		s, ok := value.(string)
		if !ok || !emailPattern.MatchString(s) {
			return fail("email", fmt.Sprintf("The %s must be a valid email address", field.Name))
		}
	case ConstraintInteger:
		if !isInteger(value) {
			return fail("integer", fmt.Sprintf("The %s must be an integer", field.Name))
		}
	case ConstraintNumeric:
		if !isNumeric(value) {
			return fail("numeric", fmt.Sprintf("The %s must be a number", field.Name))
		}
	case ConstraintBoolean:
		if !isBoolean(value) {
			return fail("boolean", fmt.Sprintf("The %s must be true or false", field.Name))
		}
	case ConstraintDate:
		if !isDate(value) {
			return fail("date", fmt.Sprintf("The %s must be a valid date", field.Name))
		}
	case ConstraintIn:
		if !optionAllowed(fmt.Sprintf("%v", value), c.Options) {
			return fail("in", fmt.Sprintf("The selected %s is invalid", field.Name))
		}
	case ConstraintInEach:
		// Each submitted option is checked on its own so the error can name
		// the offending value while valid siblings pass.
		var details []ErrorDetail
		for _, option := range optionList(value) {
			if !optionAllowed(option, c.Options) {
				details = append(details, ErrorDetail{
					Field: field.Field, Rule: "in",
					Message: fmt.Sprintf("The selected option '%s' is not valid", option),
				})
			}
		}
		return details
	case ConstraintDigitsBetween:
		if !digitsBetween(value, c.MinDigits, c.MaxDigits) {
			return fail("digits_between", fmt.Sprintf("The %s must have between %d and %d digits", field.Name, c.MinDigits, c.MaxDigits))
		}
	case ConstraintFile:
		if _, ok := value.(*FileUpload); !ok {
			return fail("file", fmt.Sprintf("The %s must be an uploaded file", field.Name))
		}
	case ConstraintMimes:
		if up, ok := value.(*FileUpload); ok && !mimeAllowed(up.Mime, c.Mimes) {
			return fail("mimes", fmt.Sprintf("The %s must be a file of type: %s", field.Name, strings.Join(c.Mimes, ", ")))
		}
	case ConstraintMaxFileSize:
		if up, ok := value.(*FileUpload); ok && up.Size > int64(c.MaxKB)*1024 {
			return fail("max", fmt.Sprintf("The %s may not be larger than %d kilobytes", field.Name, c.MaxKB))
		}
	}
	return nil
}

func hasUniqueConflict(ctx context.Context, q store.Querier, dialect store.Dialect, scope *UniqueScope, value any) (bool, error) {
	pb := dialect.NewParamBuilder()
	var where []string
	if scope.BooleanOnly {
		// Only true rows conflict: "at most one true flag", not global
		// uniqueness of a boolean.
		if !truthy(value) {
			return false, nil
		}
		where = append(where, fmt.Sprintf("%s = %s", scope.Column, pb.Add(true)))
	} else {
		where = append(where, fmt.Sprintf("%s = %s", scope.Column, pb.Add(value)))
	}
	if scope.ExceptID != nil {
		where = append(where, fmt.Sprintf("%s != %s", scope.PKColumn, pb.Add(scope.ExceptID)))
	}
	if scope.ParentKey != "" {
		where = append(where, fmt.Sprintf("%s = %s", scope.ParentKey, pb.Add(scope.ParentID)))
	}
	if scope.RelatedKey != "" && scope.ExceptRelated != nil {
		where = append(where, fmt.Sprintf("%s != %s", scope.RelatedKey, pb.Add(scope.ExceptRelated)))
	}

	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", scope.Table, strings.Join(where, " AND "))
	count, err := store.QueryCount(ctx, q, sql, pb.Params()...)
	if err != nil {
		return false, fmt.Errorf("unique check on %s.%s: %w", scope.Table, scope.Column, err)
	}
	return count > 0, nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case *FileUpload:
		return v == nil
	}
	return false
}

// The typed checks also accept parseable string forms: multipart forms carry
// every value as a string, and that is the only path file uploads arrive on.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == float64(int64(v))
	case float32:
		return v == float32(int64(v))
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil
	}
	return false
}

func isNumeric(value any) bool {
	switch v := value.(type) {
	case int, int32, int64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil
	}
	return false
}

func isBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case int:
		return v == 0 || v == 1
	case int64:
		return v == 0 || v == 1
	case float64:
		return v == 0 || v == 1
	case string:
		switch strings.TrimSpace(v) {
		case "true", "false", "0", "1":
			return true
		}
	}
	return false
}

// digitsBetween passes when the value renders as an all-digit string whose
// length falls in [min, max]. Signs, separators and decimals all fail.
func digitsBetween(value any, min, max int) bool {
	var s string
	switch v := value.(type) {
	case string:
		s = strings.TrimSpace(v)
	case int:
		s = strconv.Itoa(v)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		if v != float64(int64(v)) {
			return false
		}
		s = strconv.FormatInt(int64(v), 10)
	default:
		return false
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) >= min && len(s) <= max
}

func isDate(value any) bool {
	switch v := value.(type) {
	case time.Time:
		return true
	case string:
		for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
			if _, err := time.Parse(layout, v); err == nil {
				return true
			}
		}
	}
	return false
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v == "true" || v == "1"
	}
	return false
}

func optionAllowed(option string, allowed []string) bool {
	option = strings.TrimSpace(option)
	for _, a := range allowed {
		if a == option {
			return true
		}
	}
	return false
}

// optionList normalizes a multi-select submission: a JSON array or an
// already-delimited string.
func optionList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		options := make([]string, 0, len(v))
		for _, item := range v {
			options = append(options, fmt.Sprintf("%v", item))
		}
		return options
	case string:
		var options []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				options = append(options, part)
			}
		}
		return options
	}
	return nil
}

func mimeAllowed(mime string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, mime) {
			return true
		}
	}
	return false
}
