package scoring

// compatiblePairs lists, per question category, answer pairs that count as
// compatible-but-different. The source tables were directional; they are
// normalized to symmetric here at init so lookup order never matters.
var compatiblePairs = map[string][][2]string{
	"cuisine": {
		{"japanese", "thai"},
		{"thai", "indian"},
		{"italian", "burgers"},
		{"mexican", "burgers"},
		{"mexican", "indian"},
	},
	"activity": {
		{"movies", "board games"},
		{"live music", "dancing"},
		{"stargazing", "museum"},
		{"movies", "stargazing"},
	},
	"ambiance": {
		{"cozy", "romantic"},
		{"lively", "adventurous"},
	},
	"budget": {
		{"treat yourself", "moderate"},
		{"moderate", "frugal"},
	},
	"music": {
		{"jazz", "classical"},
		{"jazz", "lo-fi"},
		{"pop", "rock"},
		{"classical", "lo-fi"},
	},
	"dessert": {
		{"chocolate", "ice cream"},
		{"ice cream", "cheesecake"},
		{"fruit", "cheesecake"},
	},
}

// compatTable holds the symmetric closure of compatiblePairs, keyed by
// category then by each answer value.
var compatTable = buildCompatTable()

func buildCompatTable() map[string]map[string]map[string]bool {
	table := make(map[string]map[string]map[string]bool, len(compatiblePairs))
	for category, pairs := range compatiblePairs {
		byValue := make(map[string]map[string]bool)
		add := func(from, to string) {
			if byValue[from] == nil {
				byValue[from] = make(map[string]bool)
			}
			byValue[from][to] = true
		}
		for _, pair := range pairs {
			add(pair[0], pair[1])
			add(pair[1], pair[0])
		}
		table[category] = byValue
	}
	return table
}

// Compatible reports whether two distinct normalized answer values are in the
// compatible relation for the category.
func Compatible(category, a, b string) bool {
	byValue, ok := compatTable[category]
	if !ok {
		return false
	}
	return byValue[a][b]
}
