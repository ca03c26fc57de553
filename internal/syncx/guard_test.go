package syncx

import (
	"sync"
	"testing"
)

func TestGuardGet(t *testing.T) {
	g := NewGuard(42)

	if got := g.Get(); got != 42 {
		t.Errorf("Get() = %d, want 42", got)
	}
}

func TestView(t *testing.T) {
	g := NewGuard([]string{"AB12", "CD34"})

	if n := View(g, func(v []string) int { return len(v) }); n != 2 {
		t.Errorf("View() = %d, want 2", n)
	}
}

func TestModify(t *testing.T) {
	g := NewGuard(10)

	old := Modify(g, func(v *int) int {
		prev := *v
		*v = 20
		return prev
	})

	if old != 10 {
		t.Errorf("Modify returned %d, want 10", old)
	}
	if got := g.Get(); got != 20 {
		t.Errorf("Get() = %d, want 20", got)
	}
}

func TestModifyStruct(t *testing.T) {
	type state struct{ number string }
	g := NewGuard(state{})

	Modify(g, func(s *state) struct{} { s.number = "AB12"; return struct{}{} })

	if got := g.Get().number; got != "AB12" {
		t.Errorf("number = %q, want AB12", got)
	}
}

func TestGuardConcurrentSafety(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Modify(g, func(v *int) bool { *v++; return true })
		}()
		go func() {
			defer wg.Done()
			_ = g.Get()
		}()
	}
	wg.Wait()

	if got := g.Get(); got != 100 {
		t.Errorf("Get() = %d, want 100", got)
	}
}
