package reply

// Emotion is the coarse affect label attached to an utterance and its reply.
type Emotion string

const (
	EmotionExcited Emotion = "excited"
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionNeutral Emotion = "neutral"
)

// ParseEmotion accepts a wire label; unknown labels report false.
func ParseEmotion(s string) (Emotion, bool) {
	switch e := Emotion(s); e {
	case EmotionExcited, EmotionHappy, EmotionSad, EmotionNeutral:
		return e, true
	}
	return EmotionNeutral, false
}

type emotionRule struct {
	emotion  Emotion
	keywords []keyword
}

// emotionRules are checked in priority order excited > happy > sad.
var emotionRules = []emotionRule{
	{EmotionExcited, join(
		sub("عالیه", "فوق العاده", "فوق‌العاده", "هیجان", "هورا", "باورم نمیشه", "محشره", "!!", "amazing", "awesome"),
		word("وای", "wow"),
	)},
	{EmotionHappy, join(
		sub("خوشحال", "خوب", "شاد", "عالی", "ممنون", "سپاس", "مرسی", "happy", "good"),
	)},
	{EmotionSad, join(
		sub("ناراحت", "غمگین", "متاسف", "متأسف", "خسته", "دلم گرفته", "گریه", "حالم بده", "sad", "tired"),
		word("بد"),
	)},
}

// Tagger labels text with one emotion from fixed keyword lists.
type Tagger struct {
	rules []emotionRule
}

// NewTagger returns a tagger over the built-in keyword lists.
func NewTagger() *Tagger {
	return &Tagger{rules: emotionRules}
}

// Tag returns the first emotion whose keywords appear in text, or neutral.
func (t *Tagger) Tag(text string) Emotion {
	m := newMatchText(text)
	for _, r := range t.rules {
		if m.any(r.keywords) {
			return r.emotion
		}
	}
	return EmotionNeutral
}
