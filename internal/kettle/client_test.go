package kettle

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	ft := newFakeTransport(mustIdentity(t, nil))

	if _, err := New(nil, Options{MAC: testMAC}); !IsValidationError(err) {
		t.Errorf("New(nil transport) error = %v, want validation error", err)
	}
	if _, err := New(ft, Options{MAC: "bogus"}); !IsValidationError(err) {
		t.Errorf("New(bad MAC) error = %v, want validation error", err)
	}
	if _, err := New(ft, Options{MAC: testMAC, CacheTTL: -time.Second}); !IsValidationError(err) {
		t.Errorf("New(negative ttl) error = %v, want validation error", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(newFakeTransport(mustIdentity(t, nil)), Options{MAC: testMAC, ProductID: testProductID})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.ttl != DefaultCacheTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultCacheTTL)
	}
	if c.retries != DefaultRetries {
		t.Errorf("retries = %d, want %d", c.retries, DefaultRetries)
	}
	if c.notifyTimeout != DefaultNotifyTimeout {
		t.Errorf("notifyTimeout = %v, want %v", c.notifyTimeout, DefaultNotifyTimeout)
	}
	if c.Address() != testMAC {
		t.Errorf("Address() = %s, want %s", c.Address(), testMAC)
	}
}

func TestStatus_FillsOnceWithinTTL(t *testing.T) {
	h := newTestHarness(t, nil)

	for i := 0; i < 3; i++ {
		s, err := h.client.Status(true)
		if err != nil {
			t.Fatalf("Status() #%d error = %v", i, err)
		}
		if s.SetTemperature != 75 {
			t.Errorf("SetTemperature = %d, want 75", s.SetTemperature)
		}
	}

	connects, _, subs := h.transport.counts()
	if connects != 1 || subs != 1 {
		t.Errorf("connects = %d, subscriptions = %d, want 1 and 1", connects, subs)
	}
	if h.client.AuthState() != Authenticated {
		t.Errorf("AuthState() = %v, want authenticated", h.client.AuthState())
	}

	// Past the TTL the next read refills over the open session
	h.clock.Advance(DefaultCacheTTL + time.Second)
	if _, err := h.client.Status(true); err != nil {
		t.Fatalf("Status() after ttl error = %v", err)
	}
	connects, _, subs = h.transport.counts()
	if connects != 1 || subs != 2 {
		t.Errorf("after ttl: connects = %d, subscriptions = %d, want 1 and 2", connects, subs)
	}
	if n := h.transport.writesTo(HandleAuthInit); n != 1 {
		t.Errorf("handshakes = %d, want 1", n)
	}
}

func TestStatus_ExactlyAtTTLIsFresh(t *testing.T) {
	h := newTestHarness(t, nil)
	if _, err := h.client.Status(true); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(DefaultCacheTTL)
	if _, err := h.client.Status(true); err != nil {
		t.Fatal(err)
	}
	if _, _, subs := h.transport.counts(); subs != 1 {
		t.Errorf("subscriptions = %d, want 1", subs)
	}
}

func TestStatus_NoCacheAlwaysRefills(t *testing.T) {
	h := newTestHarness(t, nil)

	for i := 0; i < 2; i++ {
		if _, err := h.client.Status(false); err != nil {
			t.Fatalf("Status(false) error = %v", err)
		}
	}
	if _, _, subs := h.transport.counts(); subs != 2 {
		t.Errorf("subscriptions = %d, want 2", subs)
	}
}

func TestStatus_RetryExhaustionArmsBackoff(t *testing.T) {
	h := newTestHarness(t, func(f *fakeTransport) { f.status = nil })

	_, err := h.client.Status(true)
	if !IsNoData(err) {
		t.Fatalf("Status() error = %v, want no data", err)
	}

	if got := h.clock.Sleeps(); !reflect.DeepEqual(got, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}) {
		t.Errorf("sleeps = %v, want two of %v", got, DefaultRetryDelay)
	}
	if n := h.events.Count(EventFillAttempt); n != DefaultRetries {
		t.Errorf("fill attempts = %d, want %d", n, DefaultRetries)
	}
	if n := h.events.Count(EventTimeout); n != DefaultRetries {
		t.Errorf("timeouts = %d, want %d", n, DefaultRetries)
	}
	if n := h.events.Count(EventBackoffArmed); n != 1 {
		t.Errorf("backoff events = %d, want 1", n)
	}

	want := h.clock.Now().Add(-DefaultCacheTTL).Add(DefaultBackoffWindow)
	if !h.client.LastRead().Equal(want) {
		t.Errorf("LastRead() = %v, want %v", h.client.LastRead(), want)
	}

	// Inside the backoff window the client fails fast without the radio
	_, _, subsBefore := h.transport.counts()
	h.clock.Advance(DefaultBackoffWindow - time.Second)
	if _, err := h.client.Status(true); !IsNoData(err) {
		t.Fatalf("Status() in backoff error = %v, want no data", err)
	}
	if _, _, subs := h.transport.counts(); subs != subsBefore {
		t.Errorf("subscriptions during backoff = %d, want %d", subs, subsBefore)
	}

	// After it the next read tries again
	h.clock.Advance(2 * time.Second)
	h.transport.mu.Lock()
	h.transport.status = func(int) []byte { return validFrame() }
	h.transport.mu.Unlock()
	if _, err := h.client.Status(true); err != nil {
		t.Fatalf("Status() after backoff error = %v", err)
	}
}

func TestStatus_TransportFaultRetriesImmediately(t *testing.T) {
	h := newTestHarness(t, func(f *fakeTransport) {
		f.connectErrs = []error{NewTransportError("adapter busy", nil)}
	})

	if _, err := h.client.Status(true); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if got := h.clock.Sleeps(); len(got) != 0 {
		t.Errorf("sleeps = %v, want none", got)
	}
	if connects, _, _ := h.transport.counts(); connects != 2 {
		t.Errorf("connects = %d, want 2", connects)
	}
	if n := h.events.Count(EventTransportFault); n != 1 {
		t.Errorf("transport fault events = %d, want 1", n)
	}
}

func TestStatus_TransportFaultResetsSession(t *testing.T) {
	h := newTestHarness(t, func(f *fakeTransport) {
		f.writeErrs[fakeStatusDescriptors[StatusNotifyDescriptorIndex]] = NewTransportError("link lost", nil)
	})

	if _, err := h.client.Status(true); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	connects, disconnects, _ := h.transport.counts()
	if connects != 2 || disconnects != 1 {
		t.Errorf("connects = %d, disconnects = %d, want 2 and 1", connects, disconnects)
	}
	// The fault cleared the session, so the second attempt authenticated again
	if n := h.transport.writesTo(HandleAuthInit); n != 2 {
		t.Errorf("handshakes = %d, want 2", n)
	}
	if len(h.clock.Sleeps()) != 0 {
		t.Errorf("sleeps = %v, want none", h.clock.Sleeps())
	}
}

func TestStatus_TransportFaultsExhaustRetries(t *testing.T) {
	fault := NewTransportError("no adapter", nil)
	h := newTestHarness(t, func(f *fakeTransport) {
		f.connectErrs = []error{fault, fault, fault}
	})

	if _, err := h.client.Status(true); !IsNoData(err) {
		t.Fatalf("Status() error = %v, want no data", err)
	}
	if len(h.clock.Sleeps()) != 0 {
		t.Errorf("sleeps = %v, want none", h.clock.Sleeps())
	}
	// Faults alone do not arm the backoff window
	if h.events.Count(EventBackoffArmed) != 0 {
		t.Error("backoff armed after transport faults only")
	}
	if !h.client.LastRead().IsZero() {
		t.Errorf("LastRead() = %v, want zero", h.client.LastRead())
	}
}

func TestStatus_MalformedFrameThenSuccess(t *testing.T) {
	h := newTestHarness(t, func(f *fakeTransport) {
		f.status = func(n int) []byte {
			if n == 1 {
				return validFrame()[:10]
			}
			return validFrame()
		}
	})

	if _, err := h.client.Status(true); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if got := h.clock.Sleeps(); !reflect.DeepEqual(got, []time.Duration{DefaultRetryDelay}) {
		t.Errorf("sleeps = %v, want [%v]", got, DefaultRetryDelay)
	}
	if n := h.events.Count(EventMalformedFrame); n != 1 {
		t.Errorf("malformed events = %d, want 1", n)
	}
}

func TestStatus_AuthMismatchExhaustsRetries(t *testing.T) {
	h := newTestHarness(t, func(f *fakeTransport) { f.badAuth = true })

	if _, err := h.client.Status(true); !IsNoData(err) {
		t.Fatalf("Status() error = %v, want no data", err)
	}
	if n := h.events.Count(EventAuthMismatch); n != DefaultRetries {
		t.Errorf("mismatch events = %d, want %d", n, DefaultRetries)
	}
	if h.client.AuthState() != Unauthenticated {
		t.Errorf("AuthState() = %v, want unauthenticated", h.client.AuthState())
	}
	if _, _, subs := h.transport.counts(); subs != 0 {
		t.Errorf("subscriptions = %d, want 0 without a session", subs)
	}
}

func TestStatus_FailedRefillClearsSnapshot(t *testing.T) {
	h := newTestHarness(t, nil)
	if _, err := h.client.Status(true); err != nil {
		t.Fatal(err)
	}

	h.transport.mu.Lock()
	h.transport.status = nil
	h.transport.mu.Unlock()

	if _, err := h.client.Status(false); !IsNoData(err) {
		t.Fatalf("Status(false) error = %v, want no data", err)
	}
	if h.client.CacheAvailable() {
		t.Error("CacheAvailable() = true after a failed refill")
	}
}

func TestStatus_ConcurrentCallersShareOneFill(t *testing.T) {
	h := newTestHarness(t, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.client.Status(true); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Status() error = %v", err)
	}
	if _, _, subs := h.transport.counts(); subs != 1 {
		t.Errorf("subscriptions = %d, want 1", subs)
	}
}

func TestStatus_ConcurrentRefillsKeepOwnResult(t *testing.T) {
	h := newTestHarness(t, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8*20)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := h.client.Status(false); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Status(false) error = %v", err)
	}
	if _, _, subs := h.transport.counts(); subs != 8*20 {
		t.Errorf("subscriptions = %d, want %d", subs, 8*20)
	}
}

func TestParameter(t *testing.T) {
	h := newTestHarness(t, nil)

	v, err := h.client.Parameter(ParamSetKeepWarmTime, true)
	if err != nil {
		t.Fatalf("Parameter() error = %v", err)
	}
	if v != 34 {
		t.Errorf("Parameter(set keep warm time) = %v, want 34", v)
	}

	mode, err := h.client.Mode()
	if err != nil || mode != ModeBoil {
		t.Errorf("Mode() = %v, %v, want boil", mode, err)
	}
	ewu, err := h.client.ExtendedWarmUp()
	if err != nil || ewu.String() != "true" {
		t.Errorf("ExtendedWarmUp() = %v, %v, want true", ewu, err)
	}
	temp, err := h.client.CurrentTemperature()
	if err != nil || temp != 60 {
		t.Errorf("CurrentTemperature() = %d, %v, want 60", temp, err)
	}

	if _, err := h.client.Parameter("bogus", true); !IsValidationError(err) {
		t.Errorf("Parameter(bogus) error = %v, want validation error", err)
	}
}

func TestClearCache(t *testing.T) {
	h := newTestHarness(t, nil)
	if _, err := h.client.Status(true); err != nil {
		t.Fatal(err)
	}

	h.client.ClearCache()
	if h.client.CacheAvailable() {
		t.Error("CacheAvailable() = true after ClearCache")
	}
	if !h.client.LastRead().IsZero() {
		t.Error("LastRead() not reset by ClearCache")
	}

	if _, err := h.client.Status(true); err != nil {
		t.Fatal(err)
	}
	if _, _, subs := h.transport.counts(); subs != 2 {
		t.Errorf("subscriptions = %d, want 2", subs)
	}
}

func TestClose(t *testing.T) {
	h := newTestHarness(t, nil)
	if _, err := h.client.Status(true); err != nil {
		t.Fatal(err)
	}
	if err := h.client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, disconnects, _ := h.transport.counts(); disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disconnects)
	}
	if h.client.AuthState() != Unauthenticated {
		t.Errorf("AuthState() = %v, want unauthenticated", h.client.AuthState())
	}

	// Close on a closed client does not disconnect again
	_ = h.client.Close()
	if _, disconnects, _ := h.transport.counts(); disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", disconnects)
	}
}
