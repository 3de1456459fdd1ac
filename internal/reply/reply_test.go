package reply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand struct{ i int }

func (f fixedRand) IntN(n int) int { return f.i % n }

func TestClassifyScenarios(t *testing.T) {
	c := NewClassifier()
	cases := []struct {
		text   string
		intent string
		conf   float64
	}{
		{"سلام", IntentGreeting, 0.9},
		{"یه جک بگو", IntentJoke, 0.8},
		{"ممنون", IntentThanks, 0.9},
		{"فیل", IntentGeneral, 0.5},
		{"امروز هوا چطوره", IntentWeather, 0.8},
		{"ساعت چنده؟", IntentTime, 0.85},
		{"میشه کمکم کنی", IntentHelp, 0.85},
		{"خداحافظ", IntentGoodbye, 0.9},
		{"اسمت چیه", IntentName, 0.8},
		{"چطوری", IntentHowAreYou, 0.85},
		{"یه قصه بگو", IntentStory, 0.8},
		{"۲ + ۲ چند میشه", IntentMath, 0.7},
		{"Hello there", IntentGreeting, 0.9},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := c.Classify(tc.text)
			assert.Equal(t, tc.intent, got.Intent)
			assert.InDelta(t, tc.conf, got.Confidence, 1e-9)
		})
	}
}

func TestClassifyPriorityGreetingBeatsWeather(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("سلام، هوا امروز چطوره؟")
	assert.Equal(t, IntentGreeting, got.Intent)
}

func TestClassifyWholeWordKeywords(t *testing.T) {
	c := NewClassifier()
	// "باید" contains "بای" and "this" contains "hi"; neither is a goodbye or greeting.
	assert.Equal(t, IntentGeneral, c.Classify("باید برم").Intent)
	assert.Equal(t, IntentGeneral, c.Classify("this is nice").Intent)
	assert.Equal(t, IntentGoodbye, c.Classify("بای").Intent)
}

func TestClassifyArabicLetterForms(t *testing.T) {
	c := NewClassifier()
	// Arabic kaf/yeh variants fold onto Persian forms before matching.
	assert.Equal(t, IntentHelp, c.Classify("كمك").Intent)
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier()
	for _, text := range []string{"سلام", "یه جک بگو", "فیل", "ساعت"} {
		first := c.Classify(text)
		for range 20 {
			assert.Equal(t, first, c.Classify(text))
		}
	}
}

func TestIntentsOrder(t *testing.T) {
	want := []string{
		IntentGreeting, IntentWeather, IntentTime, IntentHelp, IntentThanks, IntentGoodbye,
		IntentName, IntentHowAreYou, IntentJoke, IntentStory, IntentMath, IntentGeneral,
	}
	assert.Equal(t, want, NewClassifier().Intents())
}

func TestTag(t *testing.T) {
	tg := NewTagger()
	assert.Equal(t, EmotionNeutral, tg.Tag("سلام"))
	assert.Equal(t, EmotionNeutral, tg.Tag("فیل"))
	assert.Equal(t, EmotionHappy, tg.Tag("خیلی خوشحالم"))
	assert.Equal(t, EmotionSad, tg.Tag("امروز خیلی خسته‌ام"))
	assert.Equal(t, EmotionExcited, tg.Tag("وای عالیه"))
	// excited outranks happy when both appear
	assert.Equal(t, EmotionExcited, tg.Tag("خوشحالم، فوق العاده است"))
	// "هوای" contains "وای" but is not an exclamation
	assert.Equal(t, EmotionNeutral, tg.Tag("هوای امروز"))
}

func TestTagNeverUndefined(t *testing.T) {
	tg := NewTagger()
	for _, text := range []string{"", "   ", "123", "xyz", "سلام", "بد"} {
		_, ok := ParseEmotion(string(tg.Tag(text)))
		assert.True(t, ok, "text %q", text)
	}
}

func TestSelectStaysInPool(t *testing.T) {
	s := NewSelector(nil)
	seen := map[string]bool{}
	pool := s.Pool(IntentGreeting)
	for range 200 {
		got := s.Select(IntentGreeting, EmotionNeutral)
		require.NotEmpty(t, got)
		assert.Contains(t, pool, got)
		seen[got] = true
	}
	assert.Greater(t, len(seen), 1, "selection should not be degenerate")
}

func TestSelectUnknownIntentUsesGeneral(t *testing.T) {
	s := NewSelector(fixedRand{i: 1})
	assert.Equal(t, s.Pool(IntentGeneral)[1], s.Select("does-not-exist", EmotionNeutral))
}

func TestSelectDecorations(t *testing.T) {
	s := NewSelector(fixedRand{})
	base := s.Pool(IntentThanks)[0]
	assert.Equal(t, base, s.Select(IntentThanks, EmotionNeutral))
	assert.Equal(t, base+" 😊", s.Select(IntentThanks, EmotionHappy))
	assert.Equal(t, "متأسفم که اینطور حس می‌کنید. "+base, s.Select(IntentThanks, EmotionSad))
	assert.Equal(t, "🎉 "+base+" 🎉", s.Select(IntentThanks, EmotionExcited))
}

func TestEveryIntentHasNonEmptyPool(t *testing.T) {
	s := NewSelector(nil)
	for _, intent := range NewClassifier().Intents() {
		pool := s.Pool(intent)
		require.NotEmpty(t, pool, intent)
		for _, cand := range pool {
			assert.NotEmpty(t, cand)
		}
	}
}

func TestEngineGreetingEndToEnd(t *testing.T) {
	e := NewEngine(nil)
	r := e.Reply("سلام")
	assert.Equal(t, IntentGreeting, r.Intent)
	assert.InDelta(t, 0.9, r.Confidence, 1e-9)
	assert.Equal(t, EmotionNeutral, r.Emotion)
	assert.Contains(t, e.Selector().Pool(IntentGreeting), r.Text)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "می خوام", Normalize("  مي‌خوام "))
	assert.Equal(t, "hello world", Normalize("HELLO   World"))
	assert.Equal(t, "12", Normalize("۱۲"))
}
