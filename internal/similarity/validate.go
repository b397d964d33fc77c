package similarity

import (
	"fmt"
	"math"
)

// Validate checks the invariants the recommendation engine relies on: the diagonal
// entry must rank first in a stable descending sort of its row, and the matrix must be
// symmetric within tolerance. A score equal to the diagonal in an earlier column would
// sort ahead of the self-match, so it is rejected. NaN scores are rejected.
func (m *Matrix) Validate(tolerance float64) error {
	for i := 0; i < m.n; i++ {
		self := float64(m.At(i, i))
		if math.IsNaN(self) {
			return fmt.Errorf("row %d: self-similarity is NaN", i)
		}
		for j := 0; j < m.n; j++ {
			v := float64(m.At(i, j))
			if math.IsNaN(v) {
				return fmt.Errorf("row %d col %d: score is NaN", i, j)
			}
			if j < i && v >= self {
				return fmt.Errorf("row %d: score %g at col %d ties or exceeds self-similarity %g", i, v, j, self)
			}
			if j > i && v > self {
				return fmt.Errorf("row %d: score %g at col %d exceeds self-similarity %g", i, v, j, self)
			}
			if j > i && math.Abs(v-float64(m.At(j, i))) > tolerance {
				return fmt.Errorf("not symmetric at (%d,%d): %g vs %g", i, j, v, m.At(j, i))
			}
		}
	}
	return nil
}
