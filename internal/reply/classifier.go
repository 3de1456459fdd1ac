package reply

// Intent names produced by the classifier.
const (
	IntentGreeting  = "greeting"
	IntentWeather   = "weather"
	IntentTime      = "time"
	IntentHelp      = "help"
	IntentThanks    = "thanks"
	IntentGoodbye   = "goodbye"
	IntentName      = "name"
	IntentHowAreYou = "how_are_you"
	IntentJoke      = "joke"
	IntentStory     = "story"
	IntentMath      = "math"
	IntentGeneral   = "general"
)

// IntentResult is the classification of one utterance.
type IntentResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

type rule struct {
	intent     string
	confidence float64
	keywords   []keyword
}

// rules is a priority list; the first matching rule wins.
var rules = []rule{
	{IntentGreeting, 0.9, join(
		sub("سلام", "درود", "صبح بخیر", "عصر بخیر", "شب بخیر", "وقت بخیر", "hello", "good morning"),
		word("hi", "hey"),
	)},
	{IntentWeather, 0.8, join(
		sub("آب و هوا", "هوا", "بارون", "باران", "برف", "آفتاب", "ابری", "دمای", "weather"),
	)},
	{IntentTime, 0.85, join(
		sub("ساعت چنده", "ساعت", "چه وقتیه", "زمان", "تاریخ", "امروز چندمه", "چه روزیه"),
		word("time", "date"),
	)},
	{IntentHelp, 0.85, join(
		sub("کمک", "راهنمایی", "راهنما", "چیکار میتونی", "چه کار میتونی", "help"),
	)},
	{IntentThanks, 0.9, join(
		sub("ممنون", "متشکر", "مرسی", "سپاس", "دستت درد نکنه", "thank you", "thanks"),
	)},
	{IntentGoodbye, 0.9, join(
		sub("خداحافظ", "خدانگهدار", "فعلا", "بدرود", "goodbye"),
		word("بای", "bye"),
	)},
	{IntentName, 0.8, join(
		sub("اسمت", "اسم تو", "اسم شما", "کی هستی", "تو کی", "your name", "who are you"),
	)},
	{IntentHowAreYou, 0.85, join(
		sub("چطوری", "حالت چطوره", "حالتون چطوره", "خوبی", "چه خبر", "how are you"),
	)},
	{IntentJoke, 0.8, join(
		sub("جوک", "لطیفه", "بخندون", "خنده دار", "joke"),
		word("جک"),
	)},
	{IntentStory, 0.8, join(
		sub("داستان", "قصه", "حکایت", "story"),
	)},
	{IntentMath, 0.7, join(
		sub("حساب کن", "ضرب", "تقسیم", "منها", "چند میشه", "+", "*", "÷", "×", "="),
		word("جمع", "math", "calculate"),
	)},
}

// generalResult is returned when no rule matches.
var generalResult = IntentResult{Intent: IntentGeneral, Confidence: 0.5}

// Classifier maps free text to an intent using the fixed rule table.
type Classifier struct {
	rules []rule
}

// NewClassifier returns a classifier over the built-in Persian/English rule table.
func NewClassifier() *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the intent of the first matching rule, or general/0.5.
func (c *Classifier) Classify(text string) IntentResult {
	m := newMatchText(text)
	for _, r := range c.rules {
		if m.any(r.keywords) {
			return IntentResult{Intent: r.intent, Confidence: r.confidence}
		}
	}
	return generalResult
}

// Intents returns the rule intents in priority order, followed by general.
func (c *Classifier) Intents() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		names = append(names, r.intent)
	}
	return append(names, IntentGeneral)
}
