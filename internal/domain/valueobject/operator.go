package valueobject

import "errors"

// Operator - оператор сравнения quality gate (Value Object)
type Operator string

const (
	OperatorGT  Operator = "gt"
	OperatorLT  Operator = "lt"
	OperatorGTE Operator = "gte"
	OperatorLTE Operator = "lte"
	OperatorEQ  Operator = "eq"
)

var ErrInvalidOperator = errors.New("invalid operator")

// Validate проверяет, что оператор из закрытого списка
func (o Operator) Validate() error {
	switch o {
	case OperatorGT, OperatorLT, OperatorGTE, OperatorLTE, OperatorEQ:
		return nil
	default:
		return ErrInvalidOperator
	}
}

// Compare применяет оператор к фактическому значению и порогу.
// Неизвестный оператор никогда не проходит.
func (o Operator) Compare(actual, threshold float64) bool {
	switch o {
	case OperatorGT:
		return actual > threshold
	case OperatorLT:
		return actual < threshold
	case OperatorGTE:
		return actual >= threshold
	case OperatorLTE:
		return actual <= threshold
	case OperatorEQ:
		return actual == threshold
	default:
		return false
	}
}

func (o Operator) String() string {
	return string(o)
}

// AllOperators возвращает список допустимых операторов
func AllOperators() []Operator {
	return []Operator{OperatorGT, OperatorLT, OperatorGTE, OperatorLTE, OperatorEQ}
}
