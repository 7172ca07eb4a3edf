package intent

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Tag
	}{
		{"Compare Radiohead and Muse", TagCompare},
		{"radiohead versus muse", TagCompare},
		{"what's the DIFFERENCE BETWEEN these albums", TagCompare},
		{"can you recommend something upbeat", TagRecommend},
		{"artists similar to Bjork?", TagRecommend},
		{"analyze the production on OK Computer", TagAnalyze},
		{"why is this song so popular", TagAnalyze},
		{"tell me about their early years", TagExplore},
		{"who is the drummer", TagExplore},
		{"what do you think of the new record", TagDiscuss},
		{"hello", TagGeneral},
		{"", TagGeneral},
	}

	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Contains both compare and explore keywords; compare is earlier in the
	// table so it must win.
	if got := Classify("tell me about radiohead versus muse"); got != TagCompare {
		t.Errorf("Expected compare to win, got %s", got)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if got := Classify("analyze this track"); got != TagAnalyze {
			t.Fatalf("Classification changed between calls: %s", got)
		}
	}
}

func TestWantsInsight(t *testing.T) {
	if !WantsInsight(TagAnalyze) || !WantsInsight(TagExplore) {
		t.Error("analyze and explore intents should trigger insights")
	}
	for _, tag := range []Tag{TagCompare, TagRecommend, TagDiscuss, TagGeneral} {
		if WantsInsight(tag) {
			t.Errorf("%s should not trigger insights", tag)
		}
	}
}

func TestInsightCategory(t *testing.T) {
	tests := []struct {
		tag      Tag
		category string
	}{
		{TagAnalyze, "style"},
		{TagExplore, "influences"},
	}
	for _, tt := range tests {
		category, ok := InsightCategory(tt.tag)
		if !ok || category != tt.category {
			t.Errorf("InsightCategory(%s) = %q, %v; want %q, true", tt.tag, category, ok, tt.category)
		}
	}
}

func TestWantsInsightAgreesWithInsightCategory(t *testing.T) {
	for _, tag := range []Tag{TagExplore, TagCompare, TagAnalyze, TagRecommend, TagDiscuss, TagGeneral} {
		_, ok := InsightCategory(tag)
		if WantsInsight(tag) != ok {
			t.Errorf("WantsInsight(%s) disagrees with InsightCategory", tag)
		}
	}
}
