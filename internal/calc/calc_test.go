package calc

import (
	"math"
	"strings"
	"testing"
)

func TestEvaluateBasics(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2 + 3", 5},
		{"2730 * 0.93", 2538.9},
		{"2730 * 0.80", 2184},
		{"((2730 - 1500) / 2730) * 100", 45.05494505494506},
		{"10 % 3", 1},
		{"2 ** 10", 1024},
		{"-5 + 3", -2},
		{"2 ** -1", 0.5},
		{"(1 + 2) * (3 + 4)", 21},
	}
	for _, c := range cases {
		got, err := Evaluate(c.expr)
		if err != nil {
			t.Errorf("Evaluate(%q) returned error: %v", c.expr, err)
			continue
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Evaluate(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvaluateRejectsNonArithmetic(t *testing.T) {
	bad := []string{
		"import os",
		"os.system('ls')",
		"x + 1",
		"pow(2, 3)",
		"1 +",
		"(1 + 2",
		"",
		"2730 // 2",
	}
	for _, expr := range bad {
		if _, err := Evaluate(expr); err == nil {
			t.Errorf("Evaluate(%q) should have failed", expr)
		}
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	if _, err := Evaluate("1 / 0"); err == nil {
		t.Error("expected division by zero error")
	}
	if _, err := Evaluate("1 % 0"); err == nil {
		t.Error("expected modulo by zero error")
	}
}

func TestEvaluateString(t *testing.T) {
	got := EvaluateString("((2730 - 1500) / 2730) * 100")
	if got != "((2730 - 1500) / 2730) * 100 = 45.05" {
		t.Errorf("unexpected formatted result: %q", got)
	}

	errResult := EvaluateString("import os")
	if !strings.HasPrefix(errResult, "Error evaluating 'import os'") {
		t.Errorf("expected descriptive error, got %q", errResult)
	}
	if !strings.Contains(errResult, "operators") {
		t.Errorf("error should mention allowed operators: %q", errResult)
	}
}
