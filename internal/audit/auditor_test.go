package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"github.com/jmerrifield20/hotelledger/internal/webhooks"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubVerifier struct {
	mu  sync.Mutex
	err error
}

func (s *stubVerifier) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stubVerifier) set(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type dispatched struct {
	event   string
	payload map[string]string
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestCheck_dispatchesOnTransitionsOnly(t *testing.T) {
	v := &stubVerifier{}
	a := New(v, Config{}, zap.NewNop())

	var events []dispatched
	a.SetWebhookDispatch(func(_ context.Context, ev string, p map[string]string) {
		events = append(events, dispatched{ev, p})
	})
	var results []bool
	a.SetMetricsRecord(func(valid bool) { results = append(results, valid) })

	ctx := context.Background()
	if err := a.Check(ctx); err != nil {
		t.Fatalf("expected valid chain, got %v", err)
	}

	v.set(&ledger.IntegrityError{Index: 2, Err: ledger.ErrHashMismatch})
	for i := 0; i < 3; i++ {
		if err := a.Check(ctx); !errors.Is(err, ledger.ErrHashMismatch) {
			t.Fatalf("expected hash mismatch, got %v", err)
		}
	}
	if a.Valid() {
		t.Error("auditor should report the chain as compromised")
	}

	v.set(nil)
	a.Check(ctx) //nolint:errcheck

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].event != webhooks.EventLedgerCompromised || events[0].payload["index"] != "2" {
		t.Errorf("unexpected compromise event: %+v", events[0])
	}
	if events[1].event != webhooks.EventLedgerRestored {
		t.Errorf("expected restored event, got %q", events[1].event)
	}
	if len(results) != 5 || results[0] != true || results[1] != false || results[4] != true {
		t.Errorf("unexpected metric results: %v", results)
	}
}

func TestCheck_realLedger(t *testing.T) {
	l := ledger.New()
	l.AddTransaction(ledger.Transaction{CustomerName: "Ravi", RoomNumber: "8", CheckIn: "2024-02-01", CheckOut: "2024-02-02", Amount: "900"})
	l.Mine()

	a := New(l, Config{}, zap.NewNop())
	if err := a.Check(context.Background()); err != nil {
		t.Fatalf("fresh ledger should pass: %v", err)
	}

	if err := l.Tamper(1, func(b *ledger.Block) { b.Data.Transactions[0].RoomNumber = "9" }); err != nil {
		t.Fatal(err)
	}
	var ie *ledger.IntegrityError
	if err := a.Check(context.Background()); !errors.As(err, &ie) || ie.Index != 1 {
		t.Fatalf("expected integrity error at block 1, got %v", err)
	}
}

func TestRun_stopsOnCancel(t *testing.T) {
	v := &stubVerifier{err: errors.New("broken")}
	a := New(v, Config{Interval: 5 * time.Millisecond}, zap.NewNop())

	fired := make(chan struct{}, 1)
	a.SetWebhookDispatch(func(context.Context, string, map[string]string) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("auditor never ran")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCheck_reportsStatusEveryTime(t *testing.T) {
	v := &stubVerifier{}
	a := New(v, Config{}, zap.NewNop())

	var statuses []bool
	a.SetStatusReport(func(valid bool) { statuses = append(statuses, valid) })

	ctx := context.Background()
	a.Check(ctx) //nolint:errcheck
	v.set(errors.New("broken"))
	a.Check(ctx) //nolint:errcheck
	a.Check(ctx) //nolint:errcheck

	if len(statuses) != 3 || !statuses[0] || statuses[1] || statuses[2] {
		t.Errorf("unexpected statuses: %v", statuses)
	}
}
