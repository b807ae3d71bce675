package notifications

import "sync"

// Level is how loudly a notice should be presented.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	// LevelBlocking notices must be acknowledged before the user can continue.
	LevelBlocking Level = "blocking"
)

// Notice is a user-facing message raised by the cart or checkout flow.
type Notice struct {
	Level   Level
	Message string
}

// Notifier presents notices to the user.
type Notifier interface {
	Notify(Notice)
}

// Func adapts a plain function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) {
	if f != nil {
		f(n)
	}
}

// Discard drops every notice.
var Discard Notifier = Func(nil)

// Recorder keeps notices in memory; used by tests and by the terminal UI to
// batch output between prompts.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Drain returns and forgets everything recorded so far.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// Last returns the most recent notice, if any.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}
