package flow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

type (
	// Check is a JavaScript predicate over `input` and `output` that a
	// schema-valid output must also satisfy, e.g.
	// "output.risk_score >= 0 && output.risk_score <= 100"
	Check struct {
		Expr    string `yaml:"expr" json:"expr"`
		Message string `yaml:"message,omitempty" json:"message,omitempty"`
	}

	// CheckError reports a check that did not hold
	CheckError struct {
		Check Check
		Err   error
	}

	compiledCheck struct {
		Check
		program *goja.Program
	}
)

var errCheckFailed = errors.New("check returned false")

func (e *CheckError) Error() string {
	msg := e.Check.Message
	if msg == "" {
		msg = e.Check.Expr
	}
	if errors.Is(e.Err, errCheckFailed) {
		return "check failed: " + msg
	}
	return fmt.Sprintf("check %q: %v", msg, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

func compileChecks(flow string, checks []Check) ([]compiledCheck, error) {
	res := make([]compiledCheck, 0, len(checks))
	for i, c := range checks {
		p, err := goja.Compile(
			fmt.Sprintf("%s#check%d", flow, i), "("+c.Expr+")", true,
		)
		if err != nil {
			return nil, fmt.Errorf("check %d: %w", i, err)
		}
		res = append(res, compiledCheck{Check: c, program: p})
	}
	return res, nil
}

// evaluateChecks runs every check in a fresh runtime. goja runtimes are not
// safe for concurrent use, so none is shared between invocations
func evaluateChecks(checks []compiledCheck, input, output any) error {
	if len(checks) == 0 {
		return nil
	}
	vm := goja.New()
	for name, v := range map[string]any{"input": input, "output": output} {
		jv, err := toJS(vm, v)
		if err != nil {
			return err
		}
		if err := vm.Set(name, jv); err != nil {
			return err
		}
	}
	for _, c := range checks {
		res, err := vm.RunProgram(c.program)
		if err != nil {
			return &CheckError{Check: c.Check, Err: err}
		}
		if !res.ToBoolean() {
			return &CheckError{Check: c.Check, Err: errCheckFailed}
		}
	}
	return nil
}

// toJS hands a value to the runtime as native JS objects and arrays
func toJS(vm *goja.Runtime, v any) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse is not callable")
	}
	return parse(goja.Undefined(), vm.ToValue(string(data)))
}
