package runner_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/signalnine/fomstat/internal/runner"
)

func TestMapKeepsOrder(t *testing.T) {
	var running, peak atomic.Int32
	inputs := make([]int, 20)
	for i := range inputs {
		inputs[i] = i
	}
	out, errs := runner.Map(3, inputs, func(n int) (int, error) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		defer running.Add(-1)
		return n * n, nil
	})
	if errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
	for i, v := range out {
		if v != i*i {
			t.Errorf("out[%d]: got %d, want %d", i, v, i*i)
		}
	}
	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent calls, saw %d", peak.Load())
	}
}

func TestMapWithErrors(t *testing.T) {
	inputs := []string{"ok", "bad", "ok", "worse"}
	_, errs := runner.Map(2, inputs, func(s string) (string, error) {
		if s != "ok" {
			return "", fmt.Errorf("fail %s", s)
		}
		return s, nil
	})
	if len(errs) != len(inputs) {
		t.Fatalf("expected one slot per input, got %d", len(errs))
	}
	if errs[0] != nil || errs[1] == nil || errs[3] == nil {
		t.Errorf("unexpected error slots: %v", errs)
	}
	if got := runner.FirstError(errs); got == nil || got.Error() != "fail bad" {
		t.Errorf("FirstError: got %v", got)
	}
}

func TestMapZeroWorkers(t *testing.T) {
	out, errs := runner.Map(0, []int{1, 2}, func(n int) (int, error) { return n + 1, nil })
	if errs != nil || out[0] != 2 || out[1] != 3 {
		t.Errorf("got out=%v errs=%v", out, errs)
	}
}
