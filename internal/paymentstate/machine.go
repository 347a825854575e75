package paymentstate

import (
	"context"
	"sync"

	"github.com/wamwagii/stk-push/internal/mpesa"
	"github.com/wamwagii/stk-push/internal/payments"
)

// Status is the UI-facing payment lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

const (
	msgNoPackage    = "No package selected. Please try again."
	msgNetworkError = "Network error. Please check your connection and try again."
)

// Package is a purchasable bundle the user picked before paying.
type Package struct {
	Name   string
	Amount int64
}

// Snapshot is the full machine state delivered to listeners. Consumers render
// purely from the latest snapshot, never from transition deltas.
type Snapshot struct {
	SelectedPackage *Package
	Status          Status
	TransactionData *mpesa.STKPushResponse
	ErrorMessage    string
}

// Initiator is the service boundary the machine drives payments through.
type Initiator interface {
	Initiate(ctx context.Context, phone string, amount int64, packageName string) (payments.PushResult, error)
}

// Listener observes state transitions.
type Listener func(Snapshot)

type subscriber struct {
	id int
	fn Listener
}

// Machine tracks a single session's payment lifecycle. Transitions are
// sequential per session; a second in-flight ProcessPayment is expected to
// be prevented by the caller disabling the trigger while processing.
type Machine struct {
	initiator Initiator

	mu          sync.Mutex
	state       Snapshot
	subscribers []subscriber
	nextID      int
}

// NewMachine builds an idle machine bound to the given initiator.
func NewMachine(initiator Initiator) *Machine {
	return &Machine{
		initiator: initiator,
		state:     Snapshot{Status: StatusIdle},
	}
}

// State returns the current snapshot.
func (m *Machine) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener for every subsequent transition. Listeners
// run synchronously in subscription order with the full current snapshot.
// The returned function unsubscribes; calling it more than once is a no-op.
func (m *Machine) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, sub := range m.subscribers {
				if sub.id == id {
					m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// SelectPackage records the chosen bundle and returns the machine to idle,
// clearing any stale error or transaction data.
func (m *Machine) SelectPackage(pkg Package) {
	p := pkg
	m.setState(func(s *Snapshot) {
		s.SelectedPackage = &p
		s.Status = StatusIdle
		s.TransactionData = nil
		s.ErrorMessage = ""
	})
}

// ProcessPayment drives one payment attempt for the selected package. The
// machine moves to processing, invokes the initiator, and lands in success
// or error. A missing package selection short-circuits straight to error.
func (m *Machine) ProcessPayment(ctx context.Context, phone string) {
	m.mu.Lock()
	pkg := m.state.SelectedPackage
	m.mu.Unlock()

	if pkg == nil {
		m.setState(func(s *Snapshot) {
			s.Status = StatusError
			s.ErrorMessage = msgNoPackage
		})
		return
	}

	m.setState(func(s *Snapshot) {
		s.Status = StatusProcessing
		s.ErrorMessage = ""
	})

	result, err := m.initiator.Initiate(ctx, phone, pkg.Amount, pkg.Name)
	if err != nil {
		m.setState(func(s *Snapshot) {
			s.Status = StatusError
			s.ErrorMessage = msgNetworkError
		})
		return
	}

	if result.Success {
		m.setState(func(s *Snapshot) {
			s.Status = StatusSuccess
			s.TransactionData = result.Data
		})
		return
	}

	message := result.Message
	if message == "" {
		message = mpesa.MsgGenericFailure
	}
	m.setState(func(s *Snapshot) {
		s.Status = StatusError
		s.ErrorMessage = message
	})
}

// Reset returns the machine to a clean idle state. Idempotent.
func (m *Machine) Reset() {
	m.setState(func(s *Snapshot) {
		s.SelectedPackage = nil
		s.Status = StatusIdle
		s.TransactionData = nil
		s.ErrorMessage = ""
	})
}

func (m *Machine) setState(mutate func(*Snapshot)) {
	m.mu.Lock()
	mutate(&m.state)
	snapshot := m.state
	subs := make([]subscriber, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot)
	}
}
