package explorer

import (
	"sync"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
)

// Listener receives session results. Callbacks run on background goroutines
// and must not call back into the Session synchronously from OnEntries.
type Listener interface {
	// OnEntries receives the ordered, selection-applied listing
	OnEntries(entries []scanner.Entry)
	// OnSize receives the aggregate size of the selection in bytes
	OnSize(bytes int64)
	// OnCleaned is called once a clean batch has finished
	OnCleaned(result *cleaner.CleanResult)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Entries func([]scanner.Entry)
	Size    func(int64)
	Cleaned func(*cleaner.CleanResult)
}

func (l ListenerFuncs) OnEntries(entries []scanner.Entry) {
	if l.Entries != nil {
		l.Entries(entries)
	}
}

func (l ListenerFuncs) OnSize(bytes int64) {
	if l.Size != nil {
		l.Size(bytes)
	}
}

func (l ListenerFuncs) OnCleaned(result *cleaner.CleanResult) {
	if l.Cleaned != nil {
		l.Cleaned(result)
	}
}

// Subscription detaches a listener when cancelled
type Subscription struct {
	session *Session
	id      uint64
	once    sync.Once
}

// Cancel stops delivery to the listener. Results already in flight are dropped.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		sub.session.mu.Lock()
		delete(sub.session.listeners, sub.id)
		sub.session.mu.Unlock()
	})
}
