// Package registry maps stable names to Go functions so that a worker process can run the
// same function the coordinator asked for.
//
// Functions are registered during package initialisation of the executable, which means the
// coordinator and every re-executed worker process hold identical registries. Arguments and
// return values travel as JSON and are decoded into the parameter types with reflection.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/util"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ErrArity is returned when an argument unit does not fit the function's parameters.
var ErrArity = errors.New("argument count mismatch")

// Default is the process-wide registry used by the worker entry point.
var Default = New()

// Func is a registered task function.
type Func struct {
	Name string

	fn       reflect.Value
	typ      reflect.Type
	hasValue bool
	hasErr   bool
}

// Registry is a concurrency-safe name → function table.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Func
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]*Func)}
}

// Register adds fn under name.
//
// fn must be a func whose results are (), (T), (error) or (T, error). Registering the same
// name twice is an error.
func (r *Registry) Register(name string, fn any) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", util.ErrInvalidFunc)
	}

	f, err := newFunc(name, fn)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("%w: %q already registered", util.ErrInvalidFunc, name)
	}
	r.funcs[name] = f
	return nil
}

// MustRegister is like Register but panics on error. Intended for init functions.
func (r *Registry) MustRegister(name string, fn any) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the function registered under name with the given argument unit.
func (r *Registry) Call(name string, arg protocol.Arg) (json.RawMessage, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", util.ErrUnknownFunc, name)
	}
	return f.Call(arg)
}

func newFunc(name string, fn any) (*Func, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %q is %T, not a func", util.ErrInvalidFunc, name, fn)
	}

	t := v.Type()
	f := &Func{Name: name, fn: v, typ: t}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			f.hasErr = true
		} else {
			f.hasValue = true
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("%w: %q second result must be error, got %s", util.ErrInvalidFunc, name, t.Out(1))
		}
		f.hasValue, f.hasErr = true, true
	default:
		return nil, fmt.Errorf("%w: %q returns %d values", util.ErrInvalidFunc, name, t.NumOut())
	}

	return f, nil
}

// Signature returns the Go signature of the function, e.g. "func(int, int) int".
func (f *Func) Signature() string {
	return f.typ.String()
}

// NumParams returns the number of declared parameters; a variadic parameter counts once.
func (f *Func) NumParams() int {
	return f.typ.NumIn()
}

// Call decodes arg into the function's parameters, invokes it and encodes the result.
// A tuple is spread as positional arguments; a single value is passed as the only argument.
// Functions without a value result yield JSON null.
func (f *Func) Call(arg protocol.Arg) (result json.RawMessage, err error) {
	in, err := f.decodeArgs(arg)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()

	outs := f.fn.Call(in)

	if f.hasErr {
		if e := outs[len(outs)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
	}

	if !f.hasValue {
		return json.RawMessage("null"), nil
	}

	data, err := json.Marshal(outs[0].Interface())
	if err != nil {
		return nil, fmt.Errorf("encode result of %s: %w", f.Name, err)
	}
	return data, nil
}

func (f *Func) decodeArgs(arg protocol.Arg) ([]reflect.Value, error) {
	values := arg.Values
	if !arg.Tuple && len(values) != 1 {
		return nil, fmt.Errorf("%w: single argument unit carries %d values", ErrArity, len(values))
	}

	numIn := f.typ.NumIn()
	variadic := f.typ.IsVariadic()
	switch {
	case variadic && len(values) < numIn-1:
		return nil, fmt.Errorf("%w: %s expects at least %d arguments, got %d", ErrArity, f.Name, numIn-1, len(values))
	case !variadic && len(values) != numIn:
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrArity, f.Name, numIn, len(values))
	}

	in := make([]reflect.Value, len(values))
	for i, raw := range values {
		var pt reflect.Type
		if variadic && i >= numIn-1 {
			pt = f.typ.In(numIn - 1).Elem()
		} else {
			pt = f.typ.In(i)
		}

		ptr := reflect.New(pt)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("decode argument %d of %s into %s: %w", i, f.Name, pt, err)
		}
		in[i] = ptr.Elem()
	}
	return in, nil
}

// PanicError is a panic raised by a task function, recovered inside the worker.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
