package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-sign/solwallet/internal/infra/ledger"
	"github.com/aegis-sign/solwallet/internal/infra/store"
)

type stubLedger struct {
	mu       sync.Mutex
	statuses map[string]ledger.Outcome
	errs     map[string]error
	calls    atomic.Int64

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		statuses: make(map[string]ledger.Outcome),
		errs:     make(map[string]error),
	}
}

func (s *stubLedger) Status(_ context.Context, signature string) (ledger.Outcome, error) {
	s.calls.Add(1)
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		max := s.maxInFlight.Load()
		if current <= max || s.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[signature]; ok {
		return ledger.Outcome{}, err
	}
	return s.statuses[signature], nil
}

func (s *stubLedger) set(signature string, outcome ledger.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[signature] = outcome
	delete(s.errs, signature)
}

func (s *stubLedger) fail(signature string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[signature] = err
}

func newEngine(t *testing.T, records store.RecordStore, statusClient Ledger, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(records, statusClient, cfg)
	require.NoError(t, err)
	return e
}

func appendPending(t *testing.T, m *store.Memory, owner string, sigs ...string) {
	t.Helper()
	for _, sig := range sigs {
		require.NoError(t, m.AppendRecord(context.Background(), store.Record{
			Signature: sig,
			Result:    store.ResultPending,
			Category:  store.CategoryBuy,
			Owner:     owner,
		}))
	}
}

func resultOf(t *testing.T, records []store.Record, signature string) store.Result {
	t.Helper()
	for _, record := range records {
		if record.Signature == signature {
			return record.Result
		}
	}
	t.Fatalf("record %s not found", signature)
	return ""
}

func TestReconcileFinalizedSuccess(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	appendPending(t, m, "o1", "sig-1")
	led := newStubLedger()
	led.set("sig-1", ledger.Outcome{Finalized: true})

	records, err := newEngine(t, m, led, Config{}).ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, store.ResultSuccess, resultOf(t, records, "sig-1"))
}

func TestReconcileFinalizedExecutionError(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	appendPending(t, m, "o1", "sig-1")
	led := newStubLedger()
	led.set("sig-1", ledger.Outcome{Finalized: true, ExecErr: "InstructionError"})

	records, err := newEngine(t, m, led, Config{}).ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, store.ResultFailed, resultOf(t, records, "sig-1"))
}

func TestReconcileNotYetFinalizedStaysPending(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	appendPending(t, m, "o1", "sig-1")
	led := newStubLedger()

	records, err := newEngine(t, m, led, Config{}).ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, store.ResultPending, resultOf(t, records, "sig-1"))
}

func TestReconcileLookupErrorDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	appendPending(t, m, "o1", "sig-ok", "sig-err")
	led := newStubLedger()
	led.set("sig-ok", ledger.Outcome{Finalized: true})
	led.fail("sig-err", errors.New("connection reset"))

	engine := newEngine(t, m, led, Config{})
	records, err := engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, store.ResultSuccess, resultOf(t, records, "sig-ok"))
	require.Equal(t, store.ResultPending, resultOf(t, records, "sig-err"))

	// 瞬时故障恢复后，下一轮读取把遗留的 pending 推进到终态。
	led.set("sig-err", ledger.Outcome{Finalized: true})
	records, err = engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, store.ResultSuccess, resultOf(t, records, "sig-err"))
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	appendPending(t, m, "o1", "sig-1", "sig-2")
	led := newStubLedger()
	led.set("sig-1", ledger.Outcome{Finalized: true})
	led.set("sig-2", ledger.Outcome{Finalized: true, ExecErr: "boom"})

	engine := newEngine(t, m, led, Config{})
	first, err := engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	second, err := engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestReconcileMonotonicAfterLedgerFlip(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	appendPending(t, m, "o1", "sig-1")
	led := newStubLedger()
	led.set("sig-1", ledger.Outcome{Finalized: true})

	engine := newEngine(t, m, led, Config{})
	_, err := engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)

	// 即使账本答案之后翻转，终态也不会被改写。
	led.set("sig-1", ledger.Outcome{Finalized: true, ExecErr: "late error"})
	records, err := engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, store.ResultSuccess, resultOf(t, records, "sig-1"))
}

func TestReconcileConcurrentPassesSettleOnce(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	appendPending(t, m, "o1", "sig-1")
	led := newStubLedger()
	led.set("sig-1", ledger.Outcome{Finalized: true})
	engine := newEngine(t, m, led, Config{})

	const passes = 8
	var wg sync.WaitGroup
	results := make([][]store.Record, passes)
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records, err := engine.ListAndReconcile(ctx, "o1")
			require.NoError(t, err)
			results[i] = records
		}(i)
	}
	wg.Wait()

	for _, records := range results {
		// 并发批次可能观察到 PENDING 或 SUCCESS，但绝不会是 FAILED 或回退。
		result := resultOf(t, records, "sig-1")
		require.Contains(t, []store.Result{store.ResultPending, store.ResultSuccess}, result)
	}
	final, err := engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, store.ResultSuccess, resultOf(t, final, "sig-1"))
}

func TestReconcileBoundsFanOut(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	sigs := make([]string, 40)
	for i := range sigs {
		sigs[i] = fmt.Sprintf("sig-%d", i)
	}
	appendPending(t, m, "o1", sigs...)
	led := newStubLedger()
	for _, sig := range sigs {
		led.set(sig, ledger.Outcome{Finalized: true})
	}

	engine := newEngine(t, m, led, Config{MaxInFlight: 4})
	_, err := engine.ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, int64(len(sigs)), led.calls.Load())
	require.LessOrEqual(t, led.maxInFlight.Load(), int64(4))
}

func TestReconcileNoPendingSkipsLedger(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.AppendRecord(ctx, store.Record{
		Signature: "done", Result: store.ResultSuccess, Owner: "o1",
	}))
	led := newStubLedger()

	records, err := newEngine(t, m, led, Config{}).ListAndReconcile(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Zero(t, led.calls.Load())
}
