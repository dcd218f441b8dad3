package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Operators accepted in the [operator, value] form of a where condition.
const (
	OpEq       = "="
	OpNe       = "!="
	OpGt       = ">"
	OpGte      = ">="
	OpLt       = "<"
	OpLte      = "<="
	OpIn       = "in"
	OpContains = "contains"
	OpLike     = "like"
)

// condition splits a where value into operator and operand. Only a two
// element list whose first element is a string is treated as an operator
// form; anything else is a literal compared for equality.
func condition(v any) (string, any) {
	if list, ok := v.([]any); ok && len(list) == 2 {
		if op, ok := list[0].(string); ok {
			return op, list[1]
		}
	}
	return OpEq, v
}

func evaluate(actual any, op string, operand any) bool {
	switch op {
	case OpEq:
		return equal(actual, operand)
	case OpNe:
		return !equal(actual, operand)
	case OpGt, OpGte, OpLt, OpLte:
		c, ok := order(actual, operand)
		if !ok {
			return false
		}
		switch op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpIn:
		set, ok := operand.([]any)
		if !ok {
			return false
		}
		for _, item := range set {
			if equal(actual, item) {
				return true
			}
		}
		return false
	case OpContains:
		list, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if equal(item, operand) {
				return true
			}
		}
		return false
	case OpLike:
		s, ok := actual.(string)
		if !ok || operand == nil {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprint(operand)))
	default:
		return false
	}
}

// equal is strict equality except that every numeric type compares by value,
// so a YAML integer matches a JSON number.
func equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// order compares a and b by their natural type. Numbers compare numerically,
// including a number against a numeric string; strings compare
// lexicographically; other mixes fall back to their string forms. A nil on
// either side is not ordered.
func order(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	switch {
	case aNum && !bNum:
		fb, bNum = parseNumber(b)
	case bNum && !aNum:
		fa, aNum = parseNumber(a)
	}
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return boolRank(ab) - boolRank(bb), true
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

func parseNumber(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sortCompare orders values for sort_by, treating missing values as "".
func sortCompare(a, b any) int {
	if a == nil {
		a = ""
	}
	if b == nil {
		b = ""
	}
	c, _ := order(a, b)
	return c
}
