package persist

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notification is a user-facing message about a submission. Info is low
// priority and may be dropped by the UI.
type Notification struct {
	Level   Level  `json:"-"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Seq     uint64 `json:"seq"`
	Err     error  `json:"-"`
}

type Notifier interface {
	Notify(Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}
