package cecproto

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pico-cec/bridge/internal/config"
	"github.com/pico-cec/bridge/internal/ddc"
	"github.com/pico-cec/bridge/internal/hidqueue"
)

// Engine owns the claimed addresses and dispatches every received
// frame to the opcode table, replying over the same Codec it
// received on.
type Engine struct {
	codec  *Codec
	keys   *hidqueue.Queue
	prober ddc.Prober
	logger *log.Logger

	mu          sync.RWMutex
	cfg         config.Config
	laddr       LogicalAddress
	paddr       PhysicalAddress
	audioStatus byte

	lastReclaimAt time.Time
}

// reclaimCooldown rate-limits the Report Physical Address broadcast
// re-claim cascade: a misbehaving TV can otherwise make this device
// re-probe and re-claim on every single broadcast it mirrors.
const reclaimCooldown = 2 * time.Second

// NewEngine wires a ready-to-run protocol engine. cfg is copied; later
// changes go through the NVS reload path, not this reference.
func NewEngine(codec *Codec, cfg config.Config, keys *hidqueue.Queue, prober ddc.Prober, logger *log.Logger) *Engine {
	return &Engine{
		codec:       codec,
		cfg:         cfg,
		keys:        keys,
		prober:      prober,
		logger:      logger,
		laddr:       AddressBroadcast,
		audioStatus: 0x32,
	}
}

// Run executes the startup sequence (spec §4.4) and then the receive
// loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	time.Sleep(time.Duration(e.cfg.EDIDDelayMS) * time.Millisecond)

	e.resolvePhysicalAddress(ctx)
	e.claimLogicalAddress(ctx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := e.codec.Receive(ctx, e.currentLAddr())
		if err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				return err
			}
			if err == ErrAbort {
				continue
			}
			continue
		}

		if msg.IsPolling() {
			continue
		}

		e.dispatch(ctx, msg)
	}
}

func (e *Engine) currentLAddr() LogicalAddress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.laddr
}

func (e *Engine) currentPAddr() PhysicalAddress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paddr
}

// resolvePhysicalAddress is startup step 3: use the configured value
// if non-zero, otherwise query DDC. A probe failure leaves the running
// address at 0.
func (e *Engine) resolvePhysicalAddress(ctx context.Context) {
	e.mu.Lock()
	configured := e.cfg.PhysicalAddress
	e.mu.Unlock()

	paddr := PhysicalAddress(configured)
	if paddr == 0 && e.prober != nil {
		paddr = PhysicalAddress(e.prober.PhysicalAddress(ctx))
	}

	e.mu.Lock()
	e.paddr = paddr
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Infof("physical address resolved to %s", paddr)
	}
}

// claimLogicalAddress is startup step 4: iterate the playback
// candidates, polling each; the first unacked candidate is adopted.
// If every candidate is occupied, fall back to the unregistered
// broadcast address.
func (e *Engine) claimLogicalAddress(ctx context.Context) {
	for _, candidate := range PlaybackCandidates {
		acked, err := e.codec.Send(ctx, PollingMessage(candidate))
		if err != nil {
			return
		}

		if !acked {
			e.mu.Lock()
			e.laddr = candidate
			e.mu.Unlock()

			if e.logger != nil {
				e.logger.Infof("claimed logical address %d", candidate)
			}

			return
		}
	}

	e.mu.Lock()
	e.laddr = AddressBroadcast
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Warn("no logical address free, remaining unregistered")
	}
}

func (e *Engine) send(ctx context.Context, dest LogicalAddress, op Opcode, operands ...byte) {
	msg := make(Message, 2+len(operands))
	msg[0] = Header(e.currentLAddr(), dest)
	msg[1] = byte(op)
	copy(msg[2:], operands)

	if _, err := e.codec.Send(ctx, msg); err != nil && e.logger != nil {
		e.logger.Debugf("send %s to %d failed: %v", op.Name(), dest, err)
	}
}

func (e *Engine) sendTo(ctx context.Context, dest LogicalAddress, op Opcode, operands ...byte) {
	e.send(ctx, dest, op, operands...)
}

func (e *Engine) broadcast(ctx context.Context, op Opcode, operands ...byte) {
	e.send(ctx, AddressBroadcast, op, operands...)
}

// dispatch handles one received frame per the supported opcode table.
func (e *Engine) dispatch(ctx context.Context, msg Message) {
	initiator := msg.Initiator()
	destination := msg.Destination()
	directed := destination == e.currentLAddr()
	fromTV := initiator == AddressTV

	op, ok := msg.Opcode()
	if !ok {
		return
	}

	switch op {
	case OpImageViewOn, OpTextViewOn, OpStandby:
		// observe only

	case OpSystemAudioModeRequest:
		if directed {
			e.sendTo(ctx, initiator, OpSetSystemAudioMode, e.getAudioStatus())
		}

	case OpGiveAudioStatus:
		if directed {
			e.sendTo(ctx, initiator, OpReportAudioStatus, 0x32)
		}

	case OpSetSystemAudioMode:
		if b, ok := msg.Operand(0); ok {
			e.setAudioStatus(b)
		}

	case OpGiveSystemAudioModeStatus:
		if directed {
			e.sendTo(ctx, initiator, OpSystemAudioModeStatus, e.getAudioStatus())
		}

	case OpRoutingChange:
		e.resolvePhysicalAddress(ctx)
		e.sendTo(ctx, AddressTV, OpImageViewOn)

	case OpReportPhysicalAddress:
		if fromTV && destination == AddressBroadcast {
			e.maybeReclaim(ctx)
		}

	case OpRequestActiveSource, OpSetStreamPath:
		if paddr := e.currentPAddr(); paddr != 0 {
			e.broadcast(ctx, OpActiveSource, paddr.Hi(), paddr.Lo())
		}

	case OpDeviceVendorID:
		if fromTV && destination == AddressBroadcast {
			e.broadcast(ctx, OpDeviceVendorID, vendorIDBytes()...)
		}

	case OpGiveDeviceVendorID:
		if directed {
			e.broadcast(ctx, OpDeviceVendorID, vendorIDBytes()...)
		}

	case OpGiveDevicePowerStatus:
		if directed {
			e.sendTo(ctx, initiator, OpReportPowerStatus, 0x00)
		}

		// Some sinks (Chromecast among them) query power status
		// addressed to 0 (the TV) expecting a reply even though no
		// CEC-aware TV answers there; the spoofed-initiator reply
		// applies independently of whether the request was directed
		// at our own claimed address.
		if e.chromecastQuirkEnabled() && destination == AddressTV {
			e.sendFromAddress(ctx, AddressTV, initiator, OpReportPowerStatus, 0x00)
		}

	case OpGetCECVersion:
		if directed {
			e.sendTo(ctx, initiator, OpCECVersion, CECVersionReported)
		}

	case OpGiveOSDName:
		if directed {
			e.sendTo(ctx, initiator, OpSetOSDName, []byte(OSDName)...)
		}

	case OpGivePhysicalAddress:
		if directed {
			if paddr := e.currentPAddr(); paddr != 0 {
				e.broadcast(ctx, OpReportPhysicalAddress, paddr.Hi(), paddr.Lo(), byte(e.deviceType()))
			}
		}

	case OpUserControlPressed:
		if directed {
			if code, ok := msg.Operand(0); ok {
				e.pressKey(code)
			}
		}

	case OpUserControlReleased:
		if directed {
			e.keys.Push(hidqueue.KeyNone)
		}

	case OpAbort:
		if directed {
			e.sendTo(ctx, initiator, OpFeatureAbort, byte(op), byte(AbortRefused))
		}

	case OpFeatureAbort, OpGetMenuLanguage, OpActiveSource, OpSystemAudioModeStatus,
		OpMenuStatus, OpReportPowerStatus, OpInactiveSource, OpCECVersion, OpVendorCommandWithID:
		// accepted silently

	default:
		if directed {
			e.sendTo(ctx, initiator, OpFeatureAbort, byte(op), byte(AbortUnrecognized))
		}
	}
}

// maybeReclaim re-resolves the physical address and re-claims a
// logical address, broadcasting the result, but no more often than
// reclaimCooldown.
func (e *Engine) maybeReclaim(ctx context.Context) {
	e.mu.Lock()
	if time.Since(e.lastReclaimAt) < reclaimCooldown {
		e.mu.Unlock()
		return
	}
	e.lastReclaimAt = time.Now()
	e.mu.Unlock()

	e.resolvePhysicalAddress(ctx)
	e.claimLogicalAddress(ctx)

	if paddr := e.currentPAddr(); paddr != 0 {
		e.broadcast(ctx, OpReportPhysicalAddress, paddr.Hi(), paddr.Lo(), byte(e.deviceType()))
	}
}

// sendFromAddress sends a reply as if it originated from spoofFrom
// instead of our claimed address, the Chromecast power-status
// workaround.
func (e *Engine) sendFromAddress(ctx context.Context, spoofFrom, dest LogicalAddress, op Opcode, operands ...byte) {
	msg := make(Message, 2+len(operands))
	msg[0] = Header(spoofFrom, dest)
	msg[1] = byte(op)
	copy(msg[2:], operands)

	if _, err := e.codec.Send(ctx, msg); err != nil && e.logger != nil {
		e.logger.Debugf("spoofed send %s to %d failed: %v", op.Name(), dest, err)
	}
}

func (e *Engine) pressKey(userControlCode byte) {
	if int(userControlCode) >= config.NumUserControlCodes {
		return
	}

	e.mu.RLock()
	cmd := e.cfg.Keymap[userControlCode]
	e.mu.RUnlock()

	if cmd.Key == 0 {
		return
	}

	e.keys.Push(cmd.Key)
}

func (e *Engine) getAudioStatus() byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.audioStatus
}

func (e *Engine) setAudioStatus(v byte) {
	e.mu.Lock()
	e.audioStatus = v
	e.mu.Unlock()
}

func (e *Engine) deviceType() config.DeviceType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.DeviceType
}

func (e *Engine) chromecastQuirkEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.ChromecastPowerQuirk
}

func vendorIDBytes() []byte {
	return []byte{byte(VendorID >> 16), byte(VendorID >> 8), byte(VendorID)}
}

// Stats returns a snapshot of the codec's transmit/receive counters.
func (e *Engine) Stats() Snapshot {
	return e.codec.stats.Snapshot()
}

// ReloadConfig swaps in a freshly-loaded configuration without
// restarting the engine or dropping claimed addresses.
func (e *Engine) ReloadConfig(cfg config.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}
