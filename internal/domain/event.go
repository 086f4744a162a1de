package domain

// EventType tags a push event delivered over a room's websocket connections.
type EventType string

const (
	// EventPartnerJoined announces the second participant.
	EventPartnerJoined EventType = "partner_joined"
	// EventProgressUpdate carries per-participant quiz completion.
	EventProgressUpdate EventType = "progress_update"
	// EventAssetUploaded announces a selfie upload.
	EventAssetUploaded EventType = "asset_uploaded"
	// EventMatchResult carries the compatibility reveal.
	EventMatchResult EventType = "match_result"
	// EventActionChosen announces the locked joint action.
	EventActionChosen EventType = "action_chosen"
	// EventAuthorizationRequired asks the room to complete an OAuth flow.
	EventAuthorizationRequired EventType = "authorization_required"
	// EventAuthorizationComplete announces authorization success.
	EventAuthorizationComplete EventType = "authorization_complete"
	// EventReply carries a responder reply.
	EventReply EventType = "reply"
	// EventError carries a user-visible failure.
	EventError EventType = "error"
)

// Event is the envelope pushed to websocket clients. Fields are populated per
// event type; unused fields are omitted from the wire form.
type Event struct {
	Type            EventType         `json:"type"`
	Who             string            `json:"who,omitempty"`
	Name            string            `json:"name,omitempty"`
	Completion      map[string]int    `json:"completion,omitempty"`
	Percent         int               `json:"percent,omitempty"`
	Highlights      []string          `json:"highlights,omitempty"`
	Recommendations map[string]string `json:"recommendations,omitempty"`
	ArtworkB64      string            `json:"artwork_b64,omitempty"`
	ArtworkMIME     string            `json:"artwork_mime,omitempty"`
	Action          string            `json:"action,omitempty"`
	ChosenBy        string            `json:"chosen_by,omitempty"`
	URL             string            `json:"url,omitempty"`
	Text            string            `json:"text,omitempty"`
	Message         string            `json:"message,omitempty"`
}

// ErrorEvent builds a user-visible error push.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
