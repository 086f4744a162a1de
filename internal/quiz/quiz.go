// Package quiz defines the fixed date-night questionnaire and tracks each
// participant's progress through it.
package quiz

import (
	"errors"

	"github.com/pairup-labs/pairup/internal/domain"
)

var (
	// ErrUnknownQuestion indicates the question ID is not part of the fixed set.
	ErrUnknownQuestion = errors.New("unknown question")
)

// Question is one entry of the fixed questionnaire. Options are suggestions;
// open-ended answers are accepted too.
type Question struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
}

// Questions is the canonical ordered question set.
var Questions = []Question{
	{
		ID:       "q1_cuisine",
		Category: "cuisine",
		Prompt:   "What are you craving tonight?",
		Options:  []string{"italian", "japanese", "mexican", "thai", "indian", "burgers"},
	},
	{
		ID:       "q2_activity",
		Category: "activity",
		Prompt:   "Pick an activity to build the evening around.",
		Options:  []string{"movies", "live music", "board games", "stargazing", "museum", "dancing"},
	},
	{
		ID:       "q3_ambiance",
		Category: "ambiance",
		Prompt:   "What kind of vibe are you after?",
		Options:  []string{"cozy", "lively", "romantic", "adventurous"},
	},
	{
		ID:       "q4_budget",
		Category: "budget",
		Prompt:   "How much do you want to spend?",
		Options:  []string{"treat yourself", "moderate", "frugal"},
	},
	{
		ID:       "q5_music",
		Category: "music",
		Prompt:   "What should be playing in the background?",
		Options:  []string{"jazz", "pop", "rock", "classical", "lo-fi"},
	},
	{
		ID:       "q6_dessert",
		Category: "dessert",
		Prompt:   "And to finish the night?",
		Options:  []string{"chocolate", "ice cream", "cheesecake", "fruit", "skip dessert"},
	},
}

// Total is the fixed question count.
func Total() int {
	return len(Questions)
}

// ByID returns the question with the given ID, or nil.
func ByID(id string) *Question {
	for i := range Questions {
		if Questions[i].ID == id {
			return &Questions[i]
		}
	}
	return nil
}

// Category returns the category of a question ID, or "".
func Category(id string) string {
	if q := ByID(id); q != nil {
		return q.Category
	}
	return ""
}

// NextQuestion returns the first question, in canonical order, that the
// participant has not answered yet. It returns nil when the quiz is complete.
func NextQuestion(p *domain.Participant) *Question {
	for i := range Questions {
		if !p.Answered(Questions[i].ID) {
			return &Questions[i]
		}
	}
	return nil
}

// Submit validates and records an answer for the participant. The value is
// accepted even when it is not among the question's suggested options.
func Submit(room *domain.Room, participantID, questionID, value string) error {
	if ByID(questionID) == nil {
		return ErrUnknownQuestion
	}
	return room.AppendAnswer(participantID, domain.Answer{
		QuestionID: questionID,
		Value:      value,
	})
}

// IsComplete reports whether the participant answered every fixed question.
func IsComplete(p *domain.Participant) bool {
	return p != nil && len(p.Answers) >= Total()
}
