package alarm

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/mathwake/wake-engine/internal/models"
)

// generateProblem produces a multiplication problem with both operands drawn
// independently and uniformly from [min, max]
func generateProblem(min, max int, now time.Time) *models.Problem {
	if max < min {
		min, max = max, min
	}
	a := min + rand.IntN(max-min+1)
	b := min + rand.IntN(max-min+1)

	return &models.Problem{
		ID:        uuid.NewString(),
		OperandA:  a,
		OperandB:  b,
		Answer:    a * b,
		CreatedAt: now,
	}
}
