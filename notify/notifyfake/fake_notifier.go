package notifyfake

import (
	"sync"

	"github.com/jrsteele09/go-session-sync/notify"
)

var _ notify.Notifier = (*FakeNotifier)(nil)

// FakeNotifier records every notification for assertions.
type FakeNotifier struct {
	lock sync.Mutex

	Successes      []string
	Errors         []string
	Validations    [][]string
	ModalDismissed int
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (fn *FakeNotifier) Success(message string) {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	fn.Successes = append(fn.Successes, message)
}

func (fn *FakeNotifier) Error(message string) {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	fn.Errors = append(fn.Errors, message)
}

func (fn *FakeNotifier) ValidationErrors(messages []string) {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	fn.Validations = append(fn.Validations, messages)
}

func (fn *FakeNotifier) DismissModal() {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	fn.ModalDismissed++
}

// ErrorCount returns the total number of error notifications, counting
// a validation list as one notification.
func (fn *FakeNotifier) ErrorCount() int {
	fn.lock.Lock()
	defer fn.lock.Unlock()
	return len(fn.Errors) + len(fn.Validations)
}
