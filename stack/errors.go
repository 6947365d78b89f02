package stack

import (
	"errors"
	"fmt"
)

// Configuration errors returned synchronously by Stack operations.
var (
	ErrMissingHandler = errors.New("no terminal handler set")
	ErrDuplicateName  = errors.New("middleware name already registered")
	ErrNameNotFound   = errors.New("middleware name not found")
	ErrNilMiddleware  = errors.New("middleware is nil")

	// ErrContractViolation is unwrapped from every *ContractViolation panic value.
	ErrContractViolation = errors.New("middleware contract violation")
)

// ConfigError describes a rejected stack operation. The stack is unchanged.
type ConfigError struct {
	Op     string
	Name   string
	Target string
	Err    error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Target != "" && e.Name != "":
		return fmt.Sprintf("stack: %s %q next to %q: %v", e.Op, e.Name, e.Target, e.Err)
	case e.Target != "":
		return fmt.Sprintf("stack: %s next to %q: %v", e.Op, e.Target, e.Err)
	case e.Name != "":
		return fmt.Sprintf("stack: %s %q: %v", e.Op, e.Name, e.Err)
	default:
		return fmt.Sprintf("stack: %s: %v", e.Op, e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ContractViolation is the panic value raised when a middleware breaks the
// composition contract.
type ContractViolation struct {
	// Layer is the entry position, or -1 for the terminal handler.
	Layer  int
	Name   string
	Reason string
}

func (v *ContractViolation) Error() string {
	return fmt.Sprintf("stack: %s: %s", v.layer(), v.Reason)
}

func (v *ContractViolation) Unwrap() error { return ErrContractViolation }

func (v *ContractViolation) layer() string {
	switch {
	case v.Layer < 0:
		return "terminal handler"
	case v.Name != "":
		return fmt.Sprintf("layer %d (%s)", v.Layer, v.Name)
	default:
		return fmt.Sprintf("layer %d", v.Layer)
	}
}
