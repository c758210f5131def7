// Package handler provides reflection-based handler execution for typed jobs.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Handler holds metadata about a function registered as a job.
type Handler struct {
	Fn         reflect.Value
	ArgsType   reflect.Type
	HasContext bool
	HasResult  bool
}

// NewHandler creates a Handler from a function.
// The function must have signature: func(ctx context.Context, data T) error
// or func(ctx context.Context, data T) (R, error). The context and the data
// argument are both optional.
func NewHandler(fn any) (*Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function")
	}
	if fnVal.IsNil() {
		return nil, fmt.Errorf("handler function cannot be nil")
	}

	fnType := fnVal.Type()
	h := &Handler{Fn: fnVal}

	numIn := fnType.NumIn()
	if numIn > 2 {
		return nil, fmt.Errorf("handler must have at most 2 arguments")
	}

	argIdx := 0
	if numIn > 0 && fnType.In(0).Implements(contextType) {
		h.HasContext = true
		argIdx = 1
	}
	if argIdx < numIn {
		h.ArgsType = fnType.In(argIdx)
	} else if numIn == 2 {
		return nil, fmt.Errorf("handler with 2 arguments must take a context first")
	}

	switch fnType.NumOut() {
	case 1:
		if !fnType.Out(0).Implements(errorType) {
			return nil, fmt.Errorf("handler must return error")
		}
	case 2:
		if !fnType.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("handler must return (R, error)")
		}
		h.HasResult = true
	default:
		return nil, fmt.Errorf("handler must return error or (R, error)")
	}

	return h, nil
}

// Execute decodes dataJSON into the argument type and calls the function.
// The result is nil unless the function returns one.
func (h *Handler) Execute(ctx context.Context, dataJSON []byte) (any, error) {
	if !h.Fn.IsValid() || h.Fn.IsNil() {
		return nil, fmt.Errorf("handler function is nil or invalid")
	}

	var args []reflect.Value
	if h.HasContext {
		args = append(args, reflect.ValueOf(ctx))
	}
	if h.ArgsType != nil {
		argVal := reflect.New(h.ArgsType)
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, argVal.Interface()); err != nil {
				return nil, fmt.Errorf("failed to unmarshal job data: %w", err)
			}
		}
		args = append(args, argVal.Elem())
	}

	results := h.Fn.Call(args)

	errVal := results[len(results)-1]
	if !errVal.IsNil() {
		return nil, errVal.Interface().(error)
	}
	if h.HasResult {
		return results[0].Interface(), nil
	}
	return nil, nil
}
