package domain

// QuestionScore is the per-question component of a compatibility result.
type QuestionScore struct {
	QuestionID string `json:"question_id"`
	ValueA     string `json:"value_a"`
	ValueB     string `json:"value_b"`
	Points     int    `json:"points"`
}

// MatchResult is the scored comparison of two complete preference sets.
type MatchResult struct {
	Percent    int             `json:"percent"`
	Breakdown  []QuestionScore `json:"breakdown"`
	Highlights []string        `json:"highlights"`
}
