package service

import (
	"sort"

	"github.com/hbollon/go-edlib"
)

// Suggestion pairs a candidate variable name with its similarity to the
// queried name.
type Suggestion struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

const (
	suggestThreshold    = 0.75
	defaultSuggestLimit = 5
)

// Suggest returns known variable names similar to the given one, best first.
// Jaro-Winkler works well here because variable name typos cluster near the
// prefix (CMAKE_SOURE_DIR, PROJET_NAME).
func (s *Service) Suggest(name string, limit int) []Suggestion {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	var suggestions []Suggestion
	for _, candidate := range s.Names() {
		similarity, err := edlib.StringsSimilarity(name, candidate, edlib.JaroWinkler)
		if err != nil {
			similarity = 0.0
		}
		if float64(similarity) >= suggestThreshold {
			suggestions = append(suggestions, Suggestion{
				Name:  candidate,
				Score: float64(similarity),
			})
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Name < suggestions[j].Name
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
