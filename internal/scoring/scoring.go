// Package scoring computes the compatibility result for two complete answer
// sets. Scoring is pure and deterministic: the same inputs always produce the
// same output.
package scoring

import (
	"fmt"
	"math"

	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/quiz"
)

// Per-question point values.
const (
	pointsIdentical  = 100
	pointsCompatible = 60
	pointsMismatch   = 20
)

// Score compares two preference sets question by question. Callers must
// guarantee both participants completed the quiz; unanswered questions on
// either side are skipped rather than rejected.
//
// The aggregate percent is symmetric in its inputs; only the breakdown's
// ValueA/ValueB assignment depends on argument order.
func Score(a, b *domain.Participant) *domain.MatchResult {
	res := &domain.MatchResult{}
	total := 0
	for _, q := range quiz.Questions {
		if !a.Answered(q.ID) || !b.Answered(q.ID) {
			continue
		}
		va := a.AnswerValue(q.ID)
		vb := b.AnswerValue(q.ID)
		points := questionPoints(q.Category, va, vb)
		total += points
		res.Breakdown = append(res.Breakdown, domain.QuestionScore{
			QuestionID: q.ID,
			ValueA:     va,
			ValueB:     vb,
			Points:     points,
		})
		switch points {
		case pointsIdentical:
			res.Highlights = append(res.Highlights,
				fmt.Sprintf("You both picked %q for %s, a perfect match.", va, q.Category))
		case pointsCompatible:
			res.Highlights = append(res.Highlights,
				fmt.Sprintf("%q and %q go well together for %s.", va, vb, q.Category))
		}
	}
	res.Percent = int(math.Round(float64(total) / float64(quiz.Total()*pointsIdentical) * 100))
	return res
}

func questionPoints(category, rawA, rawB string) int {
	va := domain.NormalizeAnswer(rawA)
	vb := domain.NormalizeAnswer(rawB)
	if va == vb {
		return pointsIdentical
	}
	if Compatible(category, va, vb) {
		return pointsCompatible
	}
	return pointsMismatch
}
