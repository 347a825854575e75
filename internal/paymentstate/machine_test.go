package paymentstate

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/wamwagii/stk-push/internal/mpesa"
	"github.com/wamwagii/stk-push/internal/payments"
)

type fakeInitiator struct {
	result payments.PushResult
	err    error
	calls  int
}

func (f *fakeInitiator) Initiate(_ context.Context, phone string, amount int64, packageName string) (payments.PushResult, error) {
	f.calls++
	return f.result, f.err
}

func TestProcessPaymentSuccess(t *testing.T) {
	data := &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_123"}
	initiator := &fakeInitiator{result: payments.PushResult{Success: true, Data: data}}
	machine := NewMachine(initiator)

	var statuses []Status
	machine.Subscribe(func(s Snapshot) {
		statuses = append(statuses, s.Status)
	})

	machine.SelectPackage(Package{Name: "10GB", Amount: 500})
	machine.ProcessPayment(context.Background(), "0712345678")

	state := machine.State()
	if state.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", state.Status)
	}
	if state.TransactionData == nil || state.TransactionData.CheckoutRequestID != "ws_CO_123" {
		t.Fatalf("expected transaction data, got %+v", state.TransactionData)
	}
	if state.SelectedPackage == nil || state.SelectedPackage.Name != "10GB" {
		t.Fatalf("selected package must survive success, got %+v", state.SelectedPackage)
	}

	want := []Status{StatusIdle, StatusProcessing, StatusSuccess}
	if !reflect.DeepEqual(statuses, want) {
		t.Fatalf("expected transitions %v, got %v", want, statuses)
	}
}

func TestProcessPaymentTimeout(t *testing.T) {
	initiator := &fakeInitiator{result: payments.PushResult{Success: false, Message: mpesa.MsgTimeout}}
	machine := NewMachine(initiator)

	machine.SelectPackage(Package{Name: "10GB", Amount: 500})
	machine.ProcessPayment(context.Background(), "0712345678")

	state := machine.State()
	if state.Status != StatusError {
		t.Fatalf("expected error, got %s", state.Status)
	}
	if state.ErrorMessage != mpesa.MsgTimeout {
		t.Fatalf("expected timeout message, got %q", state.ErrorMessage)
	}
	if state.SelectedPackage == nil {
		t.Fatal("selected package must survive a failed attempt for retry")
	}
}

func TestProcessPaymentWithoutPackage(t *testing.T) {
	initiator := &fakeInitiator{}
	machine := NewMachine(initiator)

	machine.ProcessPayment(context.Background(), "0712345678")

	state := machine.State()
	if state.Status != StatusError {
		t.Fatalf("expected error, got %s", state.Status)
	}
	if state.ErrorMessage != msgNoPackage {
		t.Fatalf("unexpected message %q", state.ErrorMessage)
	}
	if initiator.calls != 0 {
		t.Fatal("initiator must not be called without a package")
	}
}

func TestProcessPaymentTransportError(t *testing.T) {
	initiator := &fakeInitiator{err: errors.New("connection refused")}
	machine := NewMachine(initiator)

	machine.SelectPackage(Package{Name: "10GB", Amount: 500})
	machine.ProcessPayment(context.Background(), "0712345678")

	state := machine.State()
	if state.Status != StatusError || state.ErrorMessage != msgNetworkError {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestRetryAfterError(t *testing.T) {
	initiator := &fakeInitiator{result: payments.PushResult{Success: false, Message: mpesa.MsgGenericFailure}}
	machine := NewMachine(initiator)

	machine.SelectPackage(Package{Name: "10GB", Amount: 500})
	machine.ProcessPayment(context.Background(), "0712345678")
	if machine.State().Status != StatusError {
		t.Fatalf("expected error, got %s", machine.State().Status)
	}

	initiator.result = payments.PushResult{Success: true, Data: &mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_2"}}
	machine.ProcessPayment(context.Background(), "0712345678")
	if machine.State().Status != StatusSuccess {
		t.Fatalf("retry without reselecting must work, got %s", machine.State().Status)
	}
}

func TestResetIdempotent(t *testing.T) {
	machine := NewMachine(&fakeInitiator{})
	machine.SelectPackage(Package{Name: "10GB", Amount: 500})

	machine.Reset()
	first := machine.State()
	machine.Reset()
	second := machine.State()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("double reset diverged: %+v vs %+v", first, second)
	}
	if first.Status != StatusIdle || first.SelectedPackage != nil || first.TransactionData != nil || first.ErrorMessage != "" {
		t.Fatalf("reset state not clean: %+v", first)
	}
}

func TestSubscribersReceiveSnapshotsInOrder(t *testing.T) {
	machine := NewMachine(&fakeInitiator{})

	var order []string
	machine.Subscribe(func(Snapshot) { order = append(order, "first") })
	machine.Subscribe(func(Snapshot) { order = append(order, "second") })

	machine.SelectPackage(Package{Name: "10GB", Amount: 500})

	want := []string{"first", "second"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected delivery order %v, got %v", want, order)
	}
}

func TestUnsubscribeTwiceIsNoOp(t *testing.T) {
	machine := NewMachine(&fakeInitiator{})

	var aCalls, bCalls int
	unsubscribe := machine.Subscribe(func(Snapshot) { aCalls++ })
	machine.Subscribe(func(Snapshot) { bCalls++ })

	machine.SelectPackage(Package{Name: "10GB", Amount: 500})

	unsubscribe()
	unsubscribe()

	machine.Reset()

	if aCalls != 1 {
		t.Fatalf("expected unsubscribed listener to see one transition, got %d", aCalls)
	}
	if bCalls != 2 {
		t.Fatalf("remaining listener must keep receiving, got %d", bCalls)
	}
}
