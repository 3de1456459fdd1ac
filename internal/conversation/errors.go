package conversation

import "fmt"

// Kind classifies a user-facing conversation error.
type Kind int

const (
	KindCaptureUnsupported Kind = iota + 1
	KindCaptureFailure
	KindLowConfidence
	KindTransportUnavailable
	KindTransportTimeout
	KindSpeakFailure
	KindReconnectExhausted
)

func (k Kind) String() string {
	switch k {
	case KindCaptureUnsupported:
		return "capture_unsupported"
	case KindCaptureFailure:
		return "capture_failure"
	case KindLowConfidence:
		return "low_confidence_rejected"
	case KindTransportUnavailable:
		return "transport_unavailable"
	case KindTransportTimeout:
		return "transport_timeout"
	case KindSpeakFailure:
		return "speak_failure"
	case KindReconnectExhausted:
		return "reconnect_exhausted"
	default:
		return "unknown"
	}
}

// Capture failure codes reported by recognizers.
const (
	CodeNoSpeech             = "no-speech"
	CodeAudioCapture         = "audio-capture"
	CodeNotAllowed           = "not-allowed"
	CodeNetwork              = "network"
	CodeLanguageNotSupported = "language-not-supported"
	CodeAborted              = "aborted"
	CodeSpeechTimeout        = "speech-timeout"
)

// Error is delivered through OnError. Message is a short Persian string for display.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Code != "" {
		s += " (" + e.Code + ")"
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Sentinels for errors.Is.
var (
	ErrCaptureUnsupported   = &Error{Kind: KindCaptureUnsupported}
	ErrCaptureFailure       = &Error{Kind: KindCaptureFailure}
	ErrLowConfidence        = &Error{Kind: KindLowConfidence}
	ErrTransportUnavailable = &Error{Kind: KindTransportUnavailable}
	ErrTransportTimeout     = &Error{Kind: KindTransportTimeout}
	ErrSpeakFailure         = &Error{Kind: KindSpeakFailure}
	ErrReconnectExhausted   = &Error{Kind: KindReconnectExhausted}
)

var captureMessages = map[string]string{
	CodeNoSpeech:             "صدایی شنیده نشد. دوباره امتحان کنید.",
	CodeAudioCapture:         "میکروفون در دسترس نیست.",
	CodeNotAllowed:           "دسترسی به میکروفون داده نشده است.",
	CodeNetwork:              "خطای شبکه در تشخیص گفتار.",
	CodeLanguageNotSupported: "زبان فارسی پشتیبانی نمی‌شود.",
	CodeAborted:              "تشخیص گفتار متوقف شد.",
	CodeSpeechTimeout:        "زمان گوش دادن تمام شد. دوباره امتحان کنید.",
}

var kindMessages = map[Kind]string{
	KindCaptureUnsupported:   "مرورگر شما از تشخیص گفتار پشتیبانی نمی‌کند. می‌توانید پیام را تایپ کنید.",
	KindCaptureFailure:       "خطا در تشخیص گفتار.",
	KindLowConfidence:        "متوجه نشدم. لطفاً دوباره بگویید.",
	KindTransportUnavailable: "اتصال به سرور برقرار نیست.",
	KindTransportTimeout:     "پاسخ سرور دیر رسید.",
	KindSpeakFailure:         "خطا در پخش صدا.",
	KindReconnectExhausted:   "اتصال به سرور قطع شد.",
}

// Localize returns the Persian display message for kind and code.
func Localize(kind Kind, code string) string {
	if kind == KindCaptureFailure {
		if msg, ok := captureMessages[code]; ok {
			return msg
		}
	}
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return "خطای ناشناخته."
}

func newError(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: Localize(kind, code), Err: err}
}
