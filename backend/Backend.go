// Package backend implements scoped switches of the execution context
// used for batched numeric work.
package backend

import (
	"fmt"
	"runtime"
)

// Backend is an execution context which is entered before batched
// numeric work and exited afterwards
type Backend interface {
	Enter() error
	Exit()
	String() string
}

// Scope runs fn inside b. The backend is always exited once it has
// been entered, including when fn returns an error or panics.
func Scope(b Backend, fn func() error) error {
	if err := b.Enter(); err != nil {
		return fmt.Errorf("scope: could not enter %v backend: %v", b, err)
	}
	defer b.Exit()

	return fn()
}

// CPU is the default backend, which does nothing on entry or exit
type CPU struct{}

// Enter implements the Backend interface
func (CPU) Enter() error { return nil }

// Exit implements the Backend interface
func (CPU) Exit() {}

func (CPU) String() string { return "cpu" }

// Parallel raises GOMAXPROCS for the duration of the scope and
// restores the previous value on exit
type Parallel struct {
	// Procs is the number of processors to use; 0 uses all of them
	Procs int

	previous int
}

// NewParallel returns a new Parallel backend
func NewParallel(procs int) *Parallel {
	return &Parallel{Procs: procs}
}

// Enter implements the Backend interface
func (p *Parallel) Enter() error {
	if p.previous != 0 {
		return fmt.Errorf("enter: parallel backend already entered")
	}
	if p.Procs < 0 {
		return fmt.Errorf("enter: negative number of processors %d", p.Procs)
	}

	procs := p.Procs
	if procs == 0 {
		procs = runtime.NumCPU()
	}
	p.previous = runtime.GOMAXPROCS(procs)
	return nil
}

// Exit implements the Backend interface
func (p *Parallel) Exit() {
	if p.previous == 0 {
		return
	}
	runtime.GOMAXPROCS(p.previous)
	p.previous = 0
}

func (p *Parallel) String() string { return "parallel" }

// Parse returns the backend with the given name
func Parse(name string) (Backend, error) {
	switch name {
	case "", "cpu":
		return CPU{}, nil
	case "parallel":
		return NewParallel(0), nil
	}
	return nil, fmt.Errorf("parse: unknown backend %q", name)
}
