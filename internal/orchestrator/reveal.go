package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/quiz"
	"github.com/pairup-labs/pairup/internal/scoring"
)

// maybeReveal computes and broadcasts the compatibility result the first time
// both participants complete the quiz. The revealed flag guards against
// double computation when both finish on racing concurrent messages.
func (o *Orchestrator) maybeReveal(ctx context.Context, r *domain.Room) {
	// Deep copies: the partner may still be appending answers while this
	// goroutine walks them.
	a, b := r.ParticipantsSnapshot()
	if a == nil || b == nil || !quiz.IsComplete(a) || !quiz.IsComplete(b) {
		return
	}

	o.mu.Lock()
	if o.revealed[r.ID] {
		o.mu.Unlock()
		return
	}
	o.revealed[r.ID] = true
	o.mu.Unlock()

	res := scoring.Score(a, b)
	r.SetScore(res)
	slog.Info("Match revealed", "room_id", r.ID, "percent", res.Percent)

	ev := domain.Event{
		Type:       domain.EventMatchResult,
		Percent:    res.Percent,
		Highlights: res.Highlights,
		Recommendations: map[string]string{
			a.ID: recommendFor(a),
			b.ID: recommendFor(b),
		},
	}

	// Bounded wait for the racing background portrait; missing artwork never
	// blocks the reveal.
	if job := r.PortraitJob(); job != nil {
		if art := job.Wait(ctx, o.artworkWait); art != nil {
			ev.ArtworkB64 = base64.StdEncoding.EncodeToString(art.Data)
			ev.ArtworkMIME = art.MIME
		} else {
			slog.Warn("Revealing without portrait", "room_id", r.ID, "state", job.State())
		}
	}

	o.hub.BroadcastToRoom(r.ID, ev)
}

// recommendFor builds a recommendation from the participant's own stored
// answers, so the two participants always receive different, personal notes.
func recommendFor(p *domain.Participant) string {
	cuisine := domain.NormalizeAnswer(p.AnswerValue("q1_cuisine"))
	activity := domain.NormalizeAnswer(p.AnswerValue("q2_activity"))
	dessert := domain.NormalizeAnswer(p.AnswerValue("q6_dessert"))

	var b strings.Builder
	fmt.Fprintf(&b, "%s, you leaned toward %s", p.Name, orDefault(cuisine, "something tasty"))
	if activity != "" {
		fmt.Fprintf(&b, " with %s", activity)
	}
	b.WriteString(". Pitch that to your partner first.")
	if dessert != "" && dessert != "skip dessert" {
		fmt.Fprintf(&b, " And save room for %s.", dessert)
	}
	return b.String()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
