package reply

// Reply is the locally generated answer to one utterance.
type Reply struct {
	Text       string
	Intent     string
	Confidence float64
	Emotion    Emotion
}

// Engine runs classifier → tagger → selector for one utterance.
type Engine struct {
	classifier *Classifier
	tagger     *Tagger
	selector   *Selector
}

// NewEngine builds a rule engine; rnd drives template selection (nil = global source).
func NewEngine(rnd RandSource) *Engine {
	return &Engine{
		classifier: NewClassifier(),
		tagger:     NewTagger(),
		selector:   NewSelector(rnd),
	}
}

// Reply classifies text and selects a decorated reply.
func (e *Engine) Reply(text string) Reply {
	ir := e.classifier.Classify(text)
	emotion := e.tagger.Tag(text)
	return Reply{
		Text:       e.selector.Select(ir.Intent, emotion),
		Intent:     ir.Intent,
		Confidence: ir.Confidence,
		Emotion:    emotion,
	}
}

// Classify exposes the engine's classifier.
func (e *Engine) Classify(text string) IntentResult { return e.classifier.Classify(text) }

// Tag exposes the engine's emotion tagger.
func (e *Engine) Tag(text string) Emotion { return e.tagger.Tag(text) }

// Selector exposes the engine's response selector.
func (e *Engine) Selector() *Selector { return e.selector }

// Intents lists the classifier's intents in priority order.
func (e *Engine) Intents() []string { return e.classifier.Intents() }
