package intent

import "strings"

// Tag is a coarse classification of user input. It decides whether a chat
// turn also produces supplementary insight output.
type Tag string

const (
	TagExplore   Tag = "explore"
	TagCompare   Tag = "compare"
	TagAnalyze   Tag = "analyze"
	TagRecommend Tag = "recommend"
	TagDiscuss   Tag = "discuss"
	TagGeneral   Tag = "general"
)

// keywordTable maps substrings to intent tags. Entries are checked in order
// and the first match wins, so more specific phrasings come first.
var keywordTable = []struct {
	tag      Tag
	keywords []string
}{
	{TagCompare, []string{"compare", "versus", " vs ", " vs.", "difference between", "better than"}},
	{TagRecommend, []string{"recommend", "suggest", "similar to", "should i listen", "what else", "playlist"}},
	{TagAnalyze, []string{"analyze", "analysis", "break down", "breakdown", "why is", "meaning of", "what makes"}},
	{TagExplore, []string{"tell me about", "who is", "who are", "explore", "more about", "history of", "background"}},
	{TagDiscuss, []string{"discuss", "opinion", "what do you think", "thoughts on", "feel about"}},
}

// Classify maps free text to an intent tag. Pure function: case-insensitive
// substring matching against a fixed table, no match means general.
func Classify(text string) Tag {
	lower := strings.ToLower(text)
	for _, entry := range keywordTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.tag
			}
		}
	}
	return TagGeneral
}

// insightCategories maps the intents that warrant a supplementary insight to
// the category generated for them.
var insightCategories = map[Tag]string{
	TagAnalyze: "style",
	TagExplore: "influences",
}

// InsightCategory returns the insight category emitted alongside a chat turn
// with this intent. The second result is false for intents that get none.
func InsightCategory(tag Tag) (string, bool) {
	category, ok := insightCategories[tag]
	return category, ok
}

// WantsInsight reports whether a chat turn with this intent should also emit
// a supplementary insight envelope.
func WantsInsight(tag Tag) bool {
	_, ok := insightCategories[tag]
	return ok
}
