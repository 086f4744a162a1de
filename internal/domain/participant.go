// Package domain contains core domain types for the pairup application.
package domain

import (
	"strings"
)

// Answer records a participant's response to one fixed quiz question.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// Selfie is an uploaded participant photo used for portrait generation.
type Selfie struct {
	Data []byte
	MIME string
}

// Participant is one of the (at most two) members of a Room.
type Participant struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Contact string   `json:"contact,omitempty"`
	Answers []Answer `json:"answers,omitempty"`
	Selfie  *Selfie  `json:"-"`
}

// Answered reports whether the participant already answered the question.
func (p *Participant) Answered(questionID string) bool {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// AnswerValue returns the recorded value for a question, or "" if unanswered.
func (p *Participant) AnswerValue(questionID string) string {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return a.Value
		}
	}
	return ""
}

// clone copies the participant with its own answers slice. Called with the
// room mutex held.
func (p *Participant) clone() *Participant {
	if p == nil {
		return nil
	}
	c := *p
	c.Answers = append([]Answer(nil), p.Answers...)
	return &c
}

// HasSelfie reports whether the participant uploaded a photo.
func (p *Participant) HasSelfie() bool {
	return p.Selfie != nil && len(p.Selfie.Data) > 0
}

// NormalizeAnswer canonicalizes an answer value for comparison.
func NormalizeAnswer(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
