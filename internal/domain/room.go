package domain

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrRoomFull indicates both participant slots are occupied.
	ErrRoomFull = errors.New("room is full")
	// ErrAlreadyJoined indicates the joining ID matches an existing participant.
	ErrAlreadyJoined = errors.New("participant already in room")
	// ErrNotMember indicates the participant does not belong to the room.
	ErrNotMember = errors.New("participant not in room")
	// ErrDuplicateAnswer indicates the question was already answered.
	ErrDuplicateAnswer = errors.New("question already answered")
)

// ConflictError reports a rejected proposal together with the value that
// already won, so clients can self-correct instead of erroring opaquely.
type ConflictError struct {
	Action   string
	ChosenBy string
}

func (e *ConflictError) Error() string {
	return "action already chosen: " + e.Action
}

// DuplicateAnswerError reports a rejected re-answer together with the value
// already on record, mirroring ConflictError for the quiz path.
type DuplicateAnswerError struct {
	QuestionID string
	Value      string
}

func (e *DuplicateAnswerError) Error() string {
	return "question already answered: " + e.QuestionID
}

// Is matches the ErrDuplicateAnswer sentinel so existing errors.Is checks
// keep working.
func (e *DuplicateAnswerError) Is(target error) bool {
	return target == ErrDuplicateAnswer
}

// Room is a two-party paired session. All multi-field mutations go through
// methods that hold the room mutex, so concurrent events from the two
// participants never observe a partially-updated room.
type Room struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	a, b       *Participant
	score      *MatchResult
	action     string
	chosenBy   string
	portrait   *PortraitJob
	inertSince time.Time
}

// NewRoom creates a room with its first participant.
func NewRoom(id string, first *Participant) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		a:         first,
	}
}

// Join adds the second participant. It fails with ErrAlreadyJoined when the
// identifier matches the first participant and ErrRoomFull when both slots
// are taken.
func (r *Room) Join(p *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.a != nil && r.a.ID == p.ID {
		return ErrAlreadyJoined
	}
	if r.b != nil {
		if r.b.ID == p.ID {
			return ErrAlreadyJoined
		}
		return ErrRoomFull
	}
	r.b = p
	return nil
}

// Participant returns the member with the given ID, or nil.
func (r *Room) Participant(id string) *Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantLocked(id)
}

func (r *Room) participantLocked(id string) *Participant {
	if r.a != nil && r.a.ID == id {
		return r.a
	}
	if r.b != nil && r.b.ID == id {
		return r.b
	}
	return nil
}

// Partner returns the other member of the room, or nil if absent.
func (r *Room) Partner(id string) *Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.a != nil && r.a.ID == id {
		return r.b
	}
	if r.b != nil && r.b.ID == id {
		return r.a
	}
	return nil
}

// IsMember reports whether the ID belongs to the room.
func (r *Room) IsMember(id string) bool {
	return r.Participant(id) != nil
}

// Participants returns both slots; either may be nil.
func (r *Room) Participants() (*Participant, *Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.a, r.b
}

// ParticipantsSnapshot returns deep copies of both slots taken under the
// room mutex. Readers that walk answer lists outside the lock, such as
// scoring, must use the snapshot so a concurrent AppendAnswer from the
// partner never mutates a slice they are iterating.
func (r *Room) ParticipantsSnapshot() (*Participant, *Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.a.clone(), r.b.clone()
}

// AppendAnswer records an answer for the participant. Duplicate question IDs
// are rejected without mutating the list.
func (r *Room) AppendAnswer(participantID string, ans Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.participantLocked(participantID)
	if p == nil {
		return ErrNotMember
	}
	for _, existing := range p.Answers {
		if existing.QuestionID == ans.QuestionID {
			return &DuplicateAnswerError{QuestionID: existing.QuestionID, Value: existing.Value}
		}
	}
	p.Answers = append(p.Answers, ans)
	return nil
}

// AnswerCounts returns the per-participant number of recorded answers.
func (r *Room) AnswerCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int, 2)
	if r.a != nil {
		counts[r.a.ID] = len(r.a.Answers)
	}
	if r.b != nil {
		counts[r.b.ID] = len(r.b.Answers)
	}
	return counts
}

// SetSelfie attaches an uploaded photo to the participant.
func (r *Room) SetSelfie(participantID string, s *Selfie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.participantLocked(participantID)
	if p == nil {
		return ErrNotMember
	}
	p.Selfie = s
	return nil
}

// BothSelfies returns both uploaded photos, or nil pair when not yet ready.
func (r *Room) BothSelfies() (*Selfie, *Selfie, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.a == nil || r.b == nil || !r.a.HasSelfie() || !r.b.HasSelfie() {
		return nil, nil, false
	}
	return r.a.Selfie, r.b.Selfie, true
}

// Choose atomically locks the joint action. The first proposal wins; later
// proposals fail with a ConflictError carrying the winning value.
func (r *Room) Choose(action, participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.action != "" {
		return &ConflictError{Action: r.action, ChosenBy: r.chosenBy}
	}
	r.action = action
	r.chosenBy = participantID
	return nil
}

// ChosenAction returns the locked action and chooser, or "" when unchosen.
func (r *Room) ChosenAction() (action, chosenBy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.action, r.chosenBy
}

// SetScore stores the computed compatibility result.
func (r *Room) SetScore(res *MatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.score = res
}

// Score returns the stored compatibility result, or nil.
func (r *Room) Score() *MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score
}

// SetPortraitJob attaches the background generation handle to the room.
func (r *Room) SetPortraitJob(job *PortraitJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portrait = job
}

// PortraitJob returns the background generation handle, or nil.
func (r *Room) PortraitJob() *PortraitJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.portrait
}

// MarkInert flags the room as having no live connections.
func (r *Room) MarkInert(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inertSince = at
}

// MarkLive clears the inert flag on reconnect.
func (r *Room) MarkLive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inertSince = time.Time{}
}

// InertSince returns when the room lost its last connection; the zero time
// means the room is live.
func (r *Room) InertSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inertSince
}
