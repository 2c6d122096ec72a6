package domain

// WordType is the grammatical category of a word
type WordType string

const (
	WordTypeNoun      WordType = "noun"
	WordTypeVerb      WordType = "verb"
	WordTypeAdjective WordType = "adjective"
	WordTypeAdverb    WordType = "adverb"
	WordTypeOther     WordType = "other"
)

// WordData is the learnable content attached to a card.
// The scheduler never looks inside it.
type WordData struct {
	German          string   `json:"german" validate:"required"`
	Spanish         string   `json:"spanish" validate:"required"`
	WordType        WordType `json:"wordType" validate:"omitempty,oneof=noun verb adjective adverb other"`
	Gender          *string  `json:"gender" validate:"omitempty,oneof=der die das"`
	Plural          *string  `json:"plural"`
	ExampleGerman   string   `json:"exampleGerman"`
	ExampleSpanish  string   `json:"exampleSpanish"`
	Conjugations    []string `json:"conjugations,omitempty"`
	ConjugationLink string   `json:"conjugationLink,omitempty"`
	PastTense       string   `json:"pastTense,omitempty"`
}

// Front returns the question side of a card
func (w WordData) Front() string {
	if w.Gender != nil && *w.Gender != "" {
		return *w.Gender + " " + w.German
	}
	return w.German
}
