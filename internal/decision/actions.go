package decision

// Action is one selectable next-step category for the evening.
type Action struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	RequiresAuth bool   `json:"requires_auth"`
}

// Actions is the fixed set of joint actions, keyed by action key.
var Actions = map[string]Action{
	"order_in":      {Key: "order_in", Label: "Order dinner in", RequiresAuth: true},
	"dine_out":      {Key: "dine_out", Label: "Book a table out", RequiresAuth: true},
	"movie_night":   {Key: "movie_night", Label: "Movie night at home", RequiresAuth: false},
	"cook_together": {Key: "cook_together", Label: "Cook together", RequiresAuth: false},
}

// ActionByKey returns the action definition for a key.
func ActionByKey(key string) (Action, bool) {
	a, ok := Actions[key]
	return a, ok
}
