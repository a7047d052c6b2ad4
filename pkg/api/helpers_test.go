package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/services"
	"github.com/posfloor/maitre/pkg/store"
)

// testStart is the frozen wall time every API test begins at.
var testStart = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

// testServer wires a full Server over a memory store with a frozen clock.
// Hub, audit log and notification pipeline stay nil; their endpoints have
// dedicated availability tests.
type testServer struct {
	*Server
	clock *testclock.Clock
	locks *lock.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clk := testclock.NewClock(testStart)
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	locks := lock.NewManager(clk, 5*time.Minute)

	queueSvc := services.NewQueueService(st, clk, nil, nil, nil, nil, nil, nil)
	reservationSvc := services.NewReservationService(st, clk, nil, nil, nil, nil, locks, nil, nil, nil)
	tableSvc := services.NewTableService(st, clk, nil)
	commandSvc := services.NewCommandService(st, clk, nil, nil, nil, locks)
	remoteOrderSvc := services.NewRemoteOrderService(st, clk, nil, nil, nil)
	couponSvc := services.NewCouponService(st, clk, nil, nil, nil)

	s := NewServer(nil, st, queueSvc, reservationSvc, tableSvc, commandSvc, remoteOrderSvc, couponSvc)
	s.SetLockManager(locks)
	return &testServer{Server: s, clock: clk, locks: locks}
}

// do runs a request through the full router with the standard test identity.
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doAs(t, "ana", "terminal-1", method, path, body)
}

// doAs is do with an explicit user and terminal, for multi-user scenarios.
func (ts *testServer) doAs(t *testing.T, user, terminal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Store-ID", "store-1")
	req.Header.Set("X-User-ID", user)
	req.Header.Set("X-Terminal-ID", terminal)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a response body into out.
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}
