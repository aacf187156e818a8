package cecproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pico-cec/bridge/internal/config"
	"github.com/pico-cec/bridge/internal/ddc"
	"github.com/pico-cec/bridge/internal/hidqueue"
	"github.com/pico-cec/bridge/internal/keymap"
	"github.com/pico-cec/bridge/internal/line"
)

// newTestEngine wires an Engine whose codec drives mock, with the
// default (Kodi) keymap filled and laddr pre-set (skipping the startup
// claim sequence) so dispatch tests can focus on opcode handling.
func newTestEngine(mock *line.Mock, laddr LogicalAddress, paddr PhysicalAddress) (*Engine, *hidqueue.Queue) {
	codec := NewCodec(mock, &Stats{})
	keys := hidqueue.New(hidqueue.DefaultCapacity)
	cfg := config.Default()
	keymap.FillPreset(&cfg, cfg.KeymapType)
	e := NewEngine(codec, cfg, keys, ddc.NilProber{}, nil)
	e.laddr = laddr
	e.paddr = paddr

	return e, keys
}

// captureOneSend listens on mock for a single outbound frame produced
// by fn, decoding it back with a second Codec on the same bus.
func captureOneSend(t *testing.T, mock *line.Mock, listenAs LogicalAddress, fn func()) Message {
	t.Helper()

	listener := NewCodec(mock, &Stats{})

	ctx, cancel := testContext()
	defer cancel()

	var got Message
	var rxErr error
	rxDone := make(chan struct{})
	go func() {
		got, rxErr = listener.Receive(ctx, listenAs)
		close(rxDone)
	}()

	fnDone := make(chan struct{})
	go func() {
		fn()
		close(fnDone)
	}()

	bothDone := make(chan struct{})
	go func() {
		<-fnDone
		<-rxDone
		close(bothDone)
	}()

	pumpUntil(mock, bothDone, pumpStep, pumpMaxIters)

	require.NoError(t, rxErr)

	return got
}

func TestDispatchGiveOSDNameRepliesDirected(t *testing.T) {
	mock := line.NewMock()
	e, _ := newTestEngine(mock, 4, 0x1200)
	ctx, cancel := testContext()
	defer cancel()

	msg := Message{Header(AddressTV, 4), byte(OpGiveOSDName)}

	got := captureOneSend(t, mock, AddressTV, func() { e.dispatch(ctx, msg) })

	assert.Equal(t, Header(4, AddressTV), got[0])
	assert.Equal(t, byte(OpSetOSDName), got[1])
	assert.Equal(t, []byte(OSDName), []byte(got[2:]))
}

func TestDispatchUnknownOpcodeFeatureAborts(t *testing.T) {
	mock := line.NewMock()
	e, _ := newTestEngine(mock, 4, 0x1200)
	ctx, cancel := testContext()
	defer cancel()

	msg := Message{Header(AddressTV, 4), 0xdd}

	got := captureOneSend(t, mock, AddressTV, func() { e.dispatch(ctx, msg) })

	assert.Equal(t, Message{Header(4, AddressTV), byte(OpFeatureAbort), 0xdd, byte(AbortUnrecognized)}, got)
}

func TestDispatchUserControlPressedEnqueuesMappedKey(t *testing.T) {
	mock := line.NewMock()
	e, keys := newTestEngine(mock, 4, 0x1200)
	ctx, cancel := testContext()
	defer cancel()

	e.dispatch(ctx, Message{Header(AddressTV, 4), byte(OpUserControlPressed), 0x25})

	key, ok := keys.TryPop()
	require.True(t, ok)
	assert.NotZero(t, key)
}

func TestDispatchUserControlReleasedEnqueuesKeyNone(t *testing.T) {
	mock := line.NewMock()
	e, keys := newTestEngine(mock, 4, 0x1200)
	ctx, cancel := testContext()
	defer cancel()

	e.dispatch(ctx, Message{Header(AddressTV, 4), byte(OpUserControlReleased)})

	key, ok := keys.TryPop()
	require.True(t, ok)
	assert.Equal(t, hidqueue.KeyNone, key)
}

func TestDispatchIgnoresDirectedOpcodeNotAddressedToUs(t *testing.T) {
	mock := line.NewMock()
	e, _ := newTestEngine(mock, 4, 0x1200)
	ctx, cancel := testContext()
	defer cancel()

	// Destination 8, we are 4: dispatch must not reply at all.
	e.dispatch(ctx, Message{Header(AddressTV, 8), byte(OpGiveOSDName)})

	assert.Empty(t, mock.History())
}

func TestClaimLogicalAddressAdoptsFirstFreeCandidate(t *testing.T) {
	mock := line.NewMock()
	codec := NewCodec(mock, &Stats{})
	keys := hidqueue.New(hidqueue.DefaultCapacity)
	cfg := config.Default()
	e := NewEngine(codec, cfg, keys, ddc.NilProber{}, nil)

	ctx, cancel := testContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.claimLogicalAddress(ctx)
		close(done)
	}()

	pumpUntil(mock, done, pumpStep, pumpMaxIters)

	assert.Equal(t, LogicalAddress(4), e.currentLAddr())
}
