package kettle

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

const (
	testMAC       = "66:55:44:33:22:11"
	testProductID = 275
)

// Descriptor handles reported by fakeTransport
var (
	fakeAuthDescriptors   = []Handle{100, 101}
	fakeStatusDescriptors = []Handle{200, 201, 202, 203}
)

func validFrame() []byte {
	return []byte{1, 1, 0, 0, 75, 60, 1, 0, 0, 0, 34}
}

type write struct {
	handle       Handle
	data         []byte
	withResponse bool
}

// fakeTransport emulates a kettle. Notifications are delivered synchronously
// from inside the write that triggers them.
type fakeTransport struct {
	mu sync.Mutex

	identity Identity
	handler  NotificationHandler

	// connectErrs are returned by successive Connect calls; nil once exhausted
	connectErrs []error
	// writeErrs are returned once by the next write to the handle
	writeErrs map[Handle]error
	readErrs  map[Handle]error
	reads     map[Handle][]byte

	silentAuth bool
	badAuth    bool

	// status returns the frame sent after the n-th (1-based) status
	// subscription; nil sends nothing
	status func(n int) []byte

	connects      int
	disconnects   int
	subscriptions int
	writes        []write
	descWrites    []write
}

func newFakeTransport(id Identity) *fakeTransport {
	return &fakeTransport{
		identity:  id,
		writeErrs: make(map[Handle]error),
		readErrs:  make(map[Handle]error),
		reads:     make(map[Handle][]byte),
		status:    func(int) []byte { return validFrame() },
	}
}

func (f *fakeTransport) Connect(address, iface string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) ReadCharacteristic(handle Handle) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.readErrs[handle]; ok {
		delete(f.readErrs, handle)
		return nil, err
	}
	return f.reads[handle], nil
}

func (f *fakeTransport) WriteCharacteristic(handle Handle, data []byte, withResponse bool) error {
	f.mu.Lock()
	f.writes = append(f.writes, write{handle, append([]byte(nil), data...), withResponse})
	if err, ok := f.writeErrs[handle]; ok {
		delete(f.writeErrs, handle)
		f.mu.Unlock()
		return err
	}

	var reply []byte
	token := f.identity.Token()
	challenge := Cipher(f.identity.mixA(), token[:])
	if handle == HandleAuth && bytes.Equal(data, challenge) && !f.silentAuth {
		if f.badAuth {
			reply = []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0, 0, 0, 0, 0}
		} else {
			reply = Cipher(f.identity.mixA(), Cipher(f.identity.mixB(), token[:]))
		}
	}
	h := f.handler
	f.mu.Unlock()

	if reply != nil && h != nil {
		h(HandleAuth, reply)
	}
	return nil
}

func (f *fakeTransport) DescriptorsForService(uuid string) ([]Handle, error) {
	switch uuid {
	case KettleServiceUUID:
		return fakeAuthDescriptors, nil
	case DataServiceUUID:
		return fakeStatusDescriptors, nil
	default:
		return nil, nil
	}
}

func (f *fakeTransport) WriteDescriptor(descriptor Handle, data []byte, withResponse bool) error {
	f.mu.Lock()
	f.descWrites = append(f.descWrites, write{descriptor, append([]byte(nil), data...), withResponse})
	if err, ok := f.writeErrs[descriptor]; ok {
		delete(f.writeErrs, descriptor)
		f.mu.Unlock()
		return err
	}

	var frame []byte
	if descriptor == fakeStatusDescriptors[StatusNotifyDescriptorIndex] {
		f.subscriptions++
		if f.status != nil {
			frame = f.status(f.subscriptions)
		}
	}
	h := f.handler
	f.mu.Unlock()

	if frame != nil && h != nil {
		h(HandleStatus, frame)
	}
	return nil
}

func (f *fakeTransport) SetNotificationHandler(h NotificationHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

// writesTo counts characteristic writes to handle
func (f *fakeTransport) writesTo(handle Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.writes {
		if w.handle == handle {
			n++
		}
	}
	return n
}

func (f *fakeTransport) lastWrite() write {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return write{}
	}
	return f.writes[len(f.writes)-1]
}

func (f *fakeTransport) counts() (connects, disconnects, subscriptions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects, f.subscriptions
}

// fakeClock never blocks. Timers fire immediately and Sleep only advances time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- c.now.Add(d)
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func mustIdentity(t testing.TB, token []byte) Identity {
	id, err := NewIdentity(testMAC, testProductID, token)
	if err != nil {
		t.Fatalf("NewIdentity() error = %v", err)
	}
	return id
}

type testHarness struct {
	client    *Client
	transport *fakeTransport
	clock     *fakeClock
	events    *MemorySink
}

func newTestHarness(t testing.TB, configure func(*fakeTransport)) *testHarness {
	id := mustIdentity(t, nil)
	ft := newFakeTransport(id)
	if configure != nil {
		configure(ft)
	}
	clock := newFakeClock()
	events := NewMemorySink()

	client, err := New(ft, Options{
		MAC:       testMAC,
		ProductID: testProductID,
		Clock:     clock,
		Events:    events,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testHarness{client: client, transport: ft, clock: clock, events: events}
}
