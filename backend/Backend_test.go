package backend

import (
	"errors"
	"runtime"
	"testing"
)

type recorder struct {
	entered, exited int
	enterErr        error
}

func (r *recorder) Enter() error {
	if r.enterErr != nil {
		return r.enterErr
	}
	r.entered++
	return nil
}

func (r *recorder) Exit()          { r.exited++ }
func (r *recorder) String() string { return "recorder" }

func TestScopeExits(t *testing.T) {
	r := &recorder{}
	if err := Scope(r, func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	want := errors.New("update failed")
	if err := Scope(r, func() error { return want }); err != want {
		t.Errorf("want(%v) have(%v)", want, err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		Scope(r, func() error { panic("boom") })
	}()

	if r.entered != 3 || r.exited != 3 {
		t.Errorf("want 3 entries and exits, have %d and %d", r.entered,
			r.exited)
	}
}

func TestScopeEnterFailure(t *testing.T) {
	r := &recorder{enterErr: errors.New("no device")}
	called := false
	if err := Scope(r, func() error { called = true; return nil }); err == nil {
		t.Error("expected error")
	}
	if called || r.exited != 0 {
		t.Error("scope ran or exited a backend it could not enter")
	}
}

func TestParallelRestores(t *testing.T) {
	before := runtime.GOMAXPROCS(0)
	p := NewParallel(1)

	err := Scope(p, func() error {
		if got := runtime.GOMAXPROCS(0); got != 1 {
			t.Errorf("inside scope: want GOMAXPROCS 1, have %d", got)
		}
		if err := p.Enter(); err == nil {
			t.Error("expected error entering twice")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if after := runtime.GOMAXPROCS(0); after != before {
		t.Errorf("GOMAXPROCS not restored: want %d have %d", before, after)
	}
}

func TestParse(t *testing.T) {
	for _, name := range []string{"", "cpu", "parallel"} {
		if _, err := Parse(name); err != nil {
			t.Errorf("%q: %v", name, err)
		}
	}
	if _, err := Parse("gpu"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
