package alohacast

// A Notifier shows the user what the stream is doing, e.g. in a status bar
// or system notification. Notify must not block.
type Notifier interface {
	Notify(text string)
}

// NotifierFunc adapts an ordinary function to the Notifier interface.
type NotifierFunc func(text string)

func (f NotifierFunc) Notify(text string) {
	f(text)
}

type logNotifier struct{}

func (logNotifier) Notify(text string) {
	log.Info("%s", text)
}

// Messages shown for connection events.
const (
	textConnectionStarted = "Stream connection started"
	textStarted           = "Stream started"
	textConnectionFailed  = "Stream connection failed"
	textStopped           = "Stream stopped"
	textRecordStarted     = "Recording started"
	textRecordStopped     = "Recording stopped"
)
