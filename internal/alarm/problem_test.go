package alarm

import (
	"testing"
	"time"
)

func TestGenerateProblemRange(t *testing.T) {
	now := time.Now()

	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		p := generateProblem(2, 12, now)

		if p.OperandA < 2 || p.OperandA > 12 {
			t.Fatalf("operand A %d out of [2, 12]", p.OperandA)
		}
		if p.OperandB < 2 || p.OperandB > 12 {
			t.Fatalf("operand B %d out of [2, 12]", p.OperandB)
		}
		if p.Answer != p.OperandA*p.OperandB {
			t.Fatalf("answer %d != %d * %d", p.Answer, p.OperandA, p.OperandB)
		}
		if p.ID == "" {
			t.Fatal("problem ID must be set")
		}
		seen[p.OperandA] = true
		seen[p.OperandB] = true
	}

	// Both bounds should show up across 500 draws
	if !seen[2] || !seen[12] {
		t.Errorf("expected inclusive bounds to appear, saw min=%v max=%v", seen[2], seen[12])
	}
}

func TestGenerateProblemSingleValue(t *testing.T) {
	p := generateProblem(7, 7, time.Now())
	if p.OperandA != 7 || p.OperandB != 7 || p.Answer != 49 {
		t.Errorf("expected 7*7=49, got %d*%d=%d", p.OperandA, p.OperandB, p.Answer)
	}
}

func TestGenerateProblemSwappedBounds(t *testing.T) {
	p := generateProblem(12, 2, time.Now())
	if p.OperandA < 2 || p.OperandA > 12 || p.OperandB < 2 || p.OperandB > 12 {
		t.Errorf("swapped bounds must still yield [2, 12], got %d and %d", p.OperandA, p.OperandB)
	}
}
