package engine

import (
	"fmt"
	"log"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"autocrud/internal/metadata"
)

// ExprValidator compiles an expression into a custom validator. The
// expression evaluates against {value, field, record} and must return true
// for valid input; message is reported on failure. Compilation happens once,
// at registration.
func ExprValidator(expression, message string) (metadata.ValidatorFunc, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile validator expression: %w", err)
	}
	return func(field *metadata.Field, value any, record map[string]any) string {
		env := map[string]any{
			"value":  value,
			"field":  field.Field,
			"record": record,
		}
		valid, err := runBool(prog, env)
		if err != nil {
			log.Printf("WARN: validator expression failed for %s: %v", field.Field, err)
			return message
		}
		if !valid {
			return message
		}
		return ""
	}, nil
}

// ExprPredicate compiles an expression into a forbidden-action predicate.
// The expression evaluates against {user, action, request}; returning true
// forbids the action.
func ExprPredicate(expression string) (metadata.PredicateFunc, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile predicate expression: %w", err)
	}
	return func(user *metadata.UserContext, action string, req metadata.RequestContext) bool {
		env := map[string]any{
			"user":    map[string]any{"id": user.ID, "role": user.Role},
			"action":  action,
			"request": map[string]any{"entity": req.Entity, "record_id": req.RecordID, "params": req.Params},
		}
		forbidden, err := runBool(prog, env)
		if err != nil {
			// Fail closed: an erroring predicate forbids the action.
			log.Printf("WARN: predicate expression failed for action %s: %v", action, err)
			return true
		}
		return forbidden
	}, nil
}

func runBool(prog *vm.Program, env map[string]any) (bool, error) {
	result, err := expr.Run(prog, env)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", result)
	}
	return b, nil
}
