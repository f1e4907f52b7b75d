package signals

import "github.com/steveyegge/painradar/internal/types"

// Lexicon holds the keyword lists used for matching. All entries are
// lowercase; matching is case-insensitive substring search.
type Lexicon struct {
	Frustration []string
	Desire      []string
	Cost        []string
	Agreement   []string
	Solution    []string
	PainFlairs  []string
	ToolNoise   []string
}

// DefaultLexicon returns the built-in keyword lists
func DefaultLexicon() Lexicon {
	return Lexicon{
		Frustration: []string{
			"frustrat", "annoying", "annoyed", "i hate", "hate it", "nightmare",
			"terrible", "awful", "sucks", "worst", "broken", "useless", "fed up",
			"struggling", "struggle with", "waste of time", "pain in the",
			"driving me crazy", "gave up", "giving up", "tedious", "clunky",
		},
		Desire: []string{
			"wish there was", "i wish", "looking for", "is there a", "is there any",
			"alternative to", "any alternative", "need a tool", "would pay",
			"does anyone know", "recommendation", "should exist", "someone should build",
		},
		Cost: []string{
			"expensive", "overpriced", "too much money", "subscription", "pricing",
			"price increase", "can't afford", "cannot afford", "rip off", "ripoff",
			"costs too much", "paywall", "per month",
		},
		Agreement: []string{
			"same here", "me too", "same problem", "same issue", "same experience",
			"i agree", "totally agree", "exactly this", "this is so true", "so true",
			"this!", "+1", "can relate", "happens to me", "i have the same",
			"i had the same", "you're not alone", "not just you", "same boat",
		},
		Solution: []string{
			"i ended up using", "ended up using", "i switched to", "we switched to",
			"switched to", "solved it with", "have you tried", "you could try",
			"try using", "i recommend", "i'd recommend", "check out", "i use ",
			"we use ", "i used ", "workaround",
		},
		PainFlairs: []string{
			"rant", "vent", "complaint", "help", "issue", "problem", "frustrat", "support",
		},
		ToolNoise: []string{
			"the", "this", "that", "these", "those", "it", "its", "my", "our", "your",
			"we", "you", "they", "he", "she", "and", "but", "or", "so", "then", "if",
			"when", "just", "also", "now", "yes", "no", "not", "honestly", "basically",
			"personally", "edit", "update", "thanks", "thank", "maybe", "even", "still",
			"api", "ui", "ux", "pc", "os", "usa", "us", "uk", "eu", "ai", "pdf", "csv",
			"url", "faq", "diy", "eta", "imo", "imho", "tbh", "idk", "lol", "op", "ok",
		},
	}
}

// painCategories are the categories that contribute to a post's pain score
var painCategories = []types.SignalCategory{
	types.CategoryFrustration,
	types.CategoryDesire,
	types.CategoryCost,
}

func (l Lexicon) list(c types.SignalCategory) []string {
	switch c {
	case types.CategoryFrustration:
		return l.Frustration
	case types.CategoryDesire:
		return l.Desire
	case types.CategoryCost:
		return l.Cost
	case types.CategoryAgreement:
		return l.Agreement
	case types.CategorySolution:
		return l.Solution
	default:
		return nil
	}
}
