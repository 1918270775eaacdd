package schema

import (
	"context"
	"fmt"
)

// Result is the outcome of a validator. It is either settled, carrying an error
// code (empty means valid), or pending until an asynchronous check finishes.
type Result struct {
	code string
	err  error
	f    *future
}

type future struct {
	done chan struct{}
	code string
	err  error
}

// Pass returns a settled valid result.
func Pass() Result { return Result{} }

// Fail returns a settled result carrying code.
func Fail(code string) Result { return Result{code: code} }

// Error returns a settled result for a validator that could not decide. It is
// reported as CodeError.
func Error(err error) Result { return Result{code: CodeError, err: err} }

// Async runs fn on its own goroutine and returns a pending result. A returned
// error or a panic inside fn settles the result with CodeError.
func Async(fn func() (string, error)) Result {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.code = CodeError
				f.err = fmt.Errorf("panic: %v", r)
			}
		}()
		code, err := fn()
		if err != nil {
			f.code = CodeError
			f.err = err
			return
		}
		f.code = code
	}()
	return Result{f: f}
}

// Pending reports whether the result has not been settled at creation time.
func (r Result) Pending() bool { return r.f != nil }

// Done returns a channel closed once the result is settled.
func (r Result) Done() <-chan struct{} {
	if r.f == nil {
		return closedChan
	}
	return r.f.done
}

// Code blocks until the result is settled and returns its code.
func (r Result) Code() string {
	if r.f == nil {
		return r.code
	}
	<-r.f.done
	return r.f.code
}

// Err blocks until the result is settled and returns the fault that turned it
// into CodeError, if any.
func (r Result) Err() error {
	if r.f == nil {
		return r.err
	}
	<-r.f.done
	return r.f.err
}

// Wait is like Code but gives up when ctx is done.
func (r Result) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.Done():
		return r.Code(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Then chains fn after r. When r is settled, fn runs immediately; otherwise the
// chain becomes pending. A fault of r stays attached when fn passes CodeError on.
func (r Result) Then(fn func(code string) Result) Result {
	if r.f == nil {
		next := fn(r.code)
		if !next.Pending() && next.code == CodeError && next.err == nil {
			next.err = r.err
		}
		return next
	}
	return Async(func() (string, error) {
		code := r.Code()
		next := fn(code)
		if err := next.Err(); err != nil {
			return CodeError, err
		}
		if next.Code() == CodeError && code == CodeError {
			if err := r.Err(); err != nil {
				return CodeError, err
			}
		}
		return next.Code(), nil
	})
}

// String implements fmt.Stringer for debugging.
func (r Result) String() string {
	if r.f != nil {
		select {
		case <-r.f.done:
		default:
			return "Result{pending}"
		}
	}
	return fmt.Sprintf("Result{%q}", r.Code())
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
