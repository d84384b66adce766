package intent

import (
	"regexp"
	"strings"
)

// Tag identifies which handler a segment is routed to.
type Tag string

const (
	TagExit          Tag = "exit"
	TagGeneral       Tag = "general"
	TagRealtime      Tag = "realtime"
	TagOpen          Tag = "open"
	TagClose         Tag = "close"
	TagPlay          Tag = "play"
	TagSystem        Tag = "system"
	TagGoogleSearch  Tag = "google_search"
	TagYouTubeSearch Tag = "youtube_search"
	TagReminder      Tag = "reminder"
)

// Segment is one classified, independently dispatchable piece of an utterance.
type Segment struct {
	Tag Tag
	Arg string
}

var exitWords = map[string]struct{}{
	"bye": {}, "exit": {}, "quit": {}, "goodbye": {}, "end": {},
}

var realtimeKeywords = []string{
	"news", "weather", "update", "current", "latest", "recent",
	"headline", "now", "live", "score", "trending", "breaking",
	"forecast", "stock", "price", "exchange rate", "covid", "coronavirus",
	"today's news", "todays news", "today's headline", "todays headline",
	"today's weather", "todays weather", "result", "results", "match",
	"game", "event", "happening", "going on",
}

var dateTimeKeywords = []string{"date", "time", "day", "month", "year"}

var (
	rePunct         = regexp.MustCompile(`[^\w\s]`)
	reItemSplit     = regexp.MustCompile(`\s*,\s*|\s+and\s+`)
	reReminder      = regexp.MustCompile(`(?i)remind(?:er)?(?: me)?(?: on| at)?\s*(.*)`)
	reEntityWhoWhat = regexp.MustCompile(`(?i)^(who|what) is ([^?]+)\??$`)
	reEntityAbout   = regexp.MustCompile(`(?i)^(tell me about|information about) ([^?]+)\??$`)
)

// searchTriggers maps a trigger prefix (matched against the normalized text)
// to its tag and the byte count cut from the raw utterance.
var searchTriggers = []struct {
	prefix string
	tag    Tag
	cut    int
}{
	{"google ", TagGoogleSearch, 7},
	{"search google for ", TagGoogleSearch, 17},
	{"youtube ", TagYouTubeSearch, 8},
	{"search youtube for ", TagYouTubeSearch, 18},
}

var batchVerbs = []struct {
	verb string
	tag  Tag
}{
	{"open", TagOpen},
	{"close", TagClose},
	{"play", TagPlay},
	{"system", TagSystem},
}

// rule is one predicate/extractor pair of the classifier table.
// Rules are evaluated top to bottom; the first one that fires wins.
type rule func(norm, raw string) ([]Segment, bool)

var rules = []rule{
	ruleExit,
	ruleSearchTrigger,
	ruleBatchVerb,
	ruleReminder,
	ruleRealtimeKeyword,
	ruleEntityQuery,
	ruleDateTime,
}

// Classify maps an utterance to an ordered list of segments. It is total:
// any input, including the empty string, yields at least one segment
// (the general-conversation fallback carrying the whole utterance).
func Classify(utterance string) []Segment {
	raw := strings.TrimSpace(utterance)
	norm := normalize(raw)
	for _, r := range rules {
		if segs, ok := r(norm, raw); ok {
			return segs
		}
	}
	return []Segment{{Tag: TagGeneral, Arg: raw}}
}

// normalize lowercases and strips punctuation for matching. Arguments are
// always sliced from the raw utterance so casing and punctuation survive.
func normalize(raw string) string {
	return rePunct.ReplaceAllString(strings.ToLower(raw), "")
}

// ruleExit fires on any whole-word exit token and discards everything else
// in the utterance.
func ruleExit(norm, raw string) ([]Segment, bool) {
	for _, tok := range strings.Fields(norm) {
		if _, ok := exitWords[tok]; ok {
			return []Segment{{Tag: TagExit}}, true
		}
	}
	return nil, false
}

func ruleSearchTrigger(norm, raw string) ([]Segment, bool) {
	for _, t := range searchTriggers {
		if strings.HasPrefix(norm, t.prefix) && len(raw) > t.cut {
			arg := strings.TrimSpace(raw[t.cut:])
			return []Segment{{Tag: t.tag, Arg: arg}}, true
		}
	}
	return nil, false
}

// ruleBatchVerb is the only rule that can produce more than one segment:
// "open X, Y and Z" fans out into one segment per item, all with the verb's tag.
func ruleBatchVerb(norm, raw string) ([]Segment, bool) {
	for _, v := range batchVerbs {
		if !strings.HasPrefix(norm, v.verb+" ") {
			continue
		}
		rest := raw
		if len(raw) > len(v.verb) {
			rest = strings.TrimSpace(raw[len(v.verb):])
		}
		var segs []Segment
		for _, item := range reItemSplit.Split(rest, -1) {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			segs = append(segs, Segment{Tag: v.tag, Arg: item})
		}
		if len(segs) == 0 {
			segs = []Segment{{Tag: v.tag, Arg: rest}}
		}
		return segs, true
	}
	return nil, false
}

// ruleReminder extracts the trailing clause after the optional "me"/"on"/"at"
// qualifiers. The regex consumes at most one qualifier; "remind me on monday
// at 5" keeps "at 5" inside the argument. Empty extraction falls back to the
// whole utterance.
func ruleReminder(norm, raw string) ([]Segment, bool) {
	if !strings.Contains(norm, "remind") {
		return nil, false
	}
	arg := raw
	if m := reReminder.FindStringSubmatch(raw); m != nil {
		if tail := strings.TrimSpace(m[1]); tail != "" {
			arg = tail
		}
	}
	return []Segment{{Tag: TagReminder, Arg: arg}}, true
}

func ruleRealtimeKeyword(norm, raw string) ([]Segment, bool) {
	for _, kw := range realtimeKeywords {
		if strings.Contains(norm, kw) {
			return []Segment{{Tag: TagRealtime, Arg: raw}}, true
		}
	}
	return nil, false
}

// ruleEntityQuery routes "who/what is X" and "tell me about X" questions.
// A multi-word subject, or one the user bothered to capitalize, is treated
// as a named entity worth a live lookup; short lowercase subjects stay
// conversational.
func ruleEntityQuery(norm, raw string) ([]Segment, bool) {
	for _, re := range []*regexp.Regexp{reEntityWhoWhat, reEntityAbout} {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		subject := strings.TrimSpace(m[2])
		words := strings.Fields(subject)
		if len(words) > 1 || anyCapitalized(words) {
			return []Segment{{Tag: TagRealtime, Arg: raw}}, true
		}
		return []Segment{{Tag: TagGeneral, Arg: raw}}, true
	}
	return nil, false
}

func anyCapitalized(words []string) bool {
	for _, w := range words {
		if w != "" && w[0] >= 'A' && w[0] <= 'Z' {
			return true
		}
	}
	return false
}

func ruleDateTime(norm, raw string) ([]Segment, bool) {
	for _, kw := range dateTimeKeywords {
		if strings.Contains(norm, kw) {
			return []Segment{{Tag: TagGeneral, Arg: raw}}, true
		}
	}
	return nil, false
}
