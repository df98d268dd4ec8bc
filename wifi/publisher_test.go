package wifi

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu         sync.Mutex
	subscribed bool
	pushes     [][]byte
}

func (s *fakeSink) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.subscribed
}

func (s *fakeSink) Notify(value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	push := make([]byte, len(value))
	copy(push, value)
	s.pushes = append(s.pushes, push)

	return nil
}

func (s *fakeSink) SetSubscribed(subscribed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribed = subscribed
}

func (s *fakeSink) Pushes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	pushes := make([][]byte, len(s.pushes))
	copy(pushes, s.pushes)

	return pushes
}

func (s *fakeSink) LastPush() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pushes) == 0 {
		return nil
	}

	return s.pushes[len(s.pushes)-1]
}

func TestPublishLoopSkipsWithoutSubscriber(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	sink := &fakeSink{}
	m.SetStatusSink(sink)

	go m.publishLoop()
	defer m.Shutdown()

	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, sink.Pushes(), "nothing may be pushed while no client listens")
}

func TestPublishLoopPushesStatusWord(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	sink := &fakeSink{}
	sink.SetSubscribed(true)
	m.SetStatusSink(sink)

	go m.publishLoop()
	defer m.Shutdown()

	require.Eventually(t, func() bool {
		return len(sink.Pushes()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []byte{0x00, 0x00}, sink.LastPush())

	require.NoError(t, m.HandleConfigWrite(obfuscate(t, `{"ssidPrim":"home","pwPrim":"secret","ssidSec":"work","pwSec":"hunter2"}`)))
	m.onAddressAcquired("work")

	require.Eventually(t, func() bool {
		last := sink.LastPush()
		return len(last) == 2 && last[0] == 0x02 && last[1] == 0x00
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublishLoopStopsWhenUnsubscribed(t *testing.T) {
	t.Parallel()

	m, _, _, _ := newTestManager(t)

	sink := &fakeSink{}
	sink.SetSubscribed(true)
	m.SetStatusSink(sink)

	go m.publishLoop()
	defer m.Shutdown()

	require.Eventually(t, func() bool {
		return len(sink.Pushes()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	sink.SetSubscribed(false)

	// wait out in-flight pushes, then verify the loop stays quiet
	time.Sleep(50 * time.Millisecond)
	count := len(sink.Pushes())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, count, len(sink.Pushes()))
}
