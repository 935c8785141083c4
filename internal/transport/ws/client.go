package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/protocol"
	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/catalogs"
	"voxelcraft.ai/botcore/internal/sim/encoding"
	"voxelcraft.ai/botcore/internal/sim/session"
)

type Config struct {
	URL       string
	AgentName string
	// Catalogs, when set, is compared against the digests in WELCOME.
	Catalogs *catalogs.Catalogs

	OutboxSize   int
	RetryInitial time.Duration
	RetryMax     time.Duration
}

func (c *Config) applyDefaults() {
	if c.AgentName == "" {
		c.AgentName = "bot"
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = 64
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = 200 * time.Millisecond
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5 * time.Second
	}
}

// Client is the bot's connection to the world server. It implements
// session.Outbox for the tick goroutine and feeds decoded server messages
// into the session inbox. Run redials until its context ends.
type Client struct {
	cfg   Config
	log   *zap.Logger
	inbox chan<- any
	out   chan []byte

	seq     atomic.Uint32
	dropped atomic.Int64

	mu        sync.Mutex
	sessionID string
}

var _ session.Outbox = (*Client)(nil)

func NewClient(cfg Config, inbox chan<- any, log *zap.Logger) *Client {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:   cfg,
		log:   log,
		inbox: inbox,
		out:   make(chan []byte, cfg.OutboxSize),
	}
}

func (c *Client) NextSequence() uint32 { return c.seq.Add(1) }

func (c *Client) Send(p action.Packet) { c.enqueue(encodePacket(p)) }

func (c *Client) SendLook(rot action.Rotation) {
	c.enqueue(protocol.LookMsg{Type: protocol.TypeLook, ProtocolVersion: protocol.Version, Yaw: rot.Yaw, Pitch: rot.Pitch})
}

func (c *Client) SendHotbar(slot int) {
	c.enqueue(protocol.HotbarSelectMsg{Type: protocol.TypeHotbarSelect, ProtocolVersion: protocol.Version, Slot: slot})
}

func (c *Client) SendStance(sneak bool) {
	c.enqueue(protocol.StanceMsg{Type: protocol.TypeStance, ProtocolVersion: protocol.Version, Sneak: sneak})
}

// Dropped counts outbound messages lost to a full outbox.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// enqueue never blocks the tick goroutine.
func (c *Client) enqueue(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Error("encode outbound message", zap.Error(err))
		return
	}
	select {
	case c.out <- b:
	default:
		c.dropped.Add(1)
		c.log.Warn("outbox full, message dropped", zap.Int("size", len(b)))
	}
}

// Run keeps a connection up until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitial
	b.MaxInterval = c.cfg.RetryMax

	for {
		err := c.connectAndServe(ctx, b)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.NextBackOff()
		c.log.Warn("connection lost", zap.Error(err), zap.Duration("retry_in", wait))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context, b *backoff.ExponentialBackOff) error {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, c.cfg.URL, http.Header{})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	// Anything queued for the previous connection belongs to a dead session.
	c.drainOutbox()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       c.cfg.AgentName,
		SessionID:       c.SessionID(),
		Capabilities:    protocol.HelloCapabilities{Ack: true, MaxQueue: c.cfg.OutboxSize},
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send HELLO: %w", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	defer wg.Wait()
	defer cancel()

	// Closing the connection wakes the blocked reader.
	go func() {
		defer wg.Done()
		<-cctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	// Writer goroutine.
	go func() {
		defer wg.Done()
		for {
			select {
			case <-cctx.Done():
				return
			case msg := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Reader loop.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := c.decode(msg)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownType) {
				c.log.Debug("ignoring message", zap.Error(err))
			} else {
				c.log.Warn("bad server message", zap.Error(err))
			}
			continue
		}
		if ev == nil {
			continue
		}
		if _, ok := ev.(session.Reconnect); ok {
			b.Reset()
		}
		select {
		case c.inbox <- ev:
		case <-cctx.Done():
			return cctx.Err()
		}
	}
}

func (c *Client) drainOutbox() {
	for {
		select {
		case <-c.out:
		default:
			return
		}
	}
}

// decode maps one server message onto a session event. A nil event with a
// nil error means the message was consumed here.
func (c *Client) decode(msg []byte) (any, error) {
	v, err := protocol.DecodeServer(msg)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case *protocol.WelcomeMsg:
		if m.ProtocolVersion != protocol.Version {
			return nil, fmt.Errorf("WELCOME: unsupported protocol_version %q", m.ProtocolVersion)
		}
		c.checkCatalogs(m.Catalogs)
		c.mu.Lock()
		c.sessionID = m.SessionID
		c.mu.Unlock()
		c.log.Info("welcome",
			zap.String("session_id", m.SessionID),
			zap.String("agent_id", m.AgentID),
			zap.Int("tick_rate_hz", m.WorldParams.TickRateHz),
		)
		return session.Reconnect{
			SessionID: m.SessionID,
			Eye:       action.Vec3fFromArray(m.Eye),
			Hotbar:    m.Hotbar,
			Selected:  m.SelectedSlot,
		}, nil
	case *protocol.AckMsg:
		if !protocol.IsKnownCode(m.Code) {
			c.log.Warn("unknown ack code", zap.String("code", m.Code), zap.Uint32("seq", m.Seq))
		}
		return session.Ack{Seq: m.Seq, Accepted: m.Accepted, Code: m.Code, Message: m.Message}, nil
	case *protocol.BlockUpdateMsg:
		return session.BlockUpdate{Pos: action.Vec3iFromArray(m.Pos), Block: m.Block}, nil
	case *protocol.EntityMsg:
		ent := action.Entity{ID: m.ID, Item: m.Item, Pos: action.Vec3fFromArray(m.Pos)}
		if m.Type == protocol.TypeEntityUpdate {
			return session.EntityUpdate{Entity: ent}, nil
		}
		return session.EntitySpawn{Entity: ent}, nil
	case *protocol.EntityRemoveMsg:
		return session.EntityRemove{ID: m.ID}, nil
	case *protocol.VoxelsMsg:
		return decodeVoxels(m)
	}
	return nil, nil
}

func decodeVoxels(m *protocol.VoxelsMsg) (any, error) {
	center := action.Vec3iFromArray(m.Center)
	switch m.Encoding {
	case protocol.VoxelsRLE:
		ids, err := encoding.DecodeCube(m.Data, m.Radius)
		if err != nil {
			return nil, fmt.Errorf("VOXELS: %w", err)
		}
		out := session.Voxels{Updates: make([]session.BlockUpdate, len(ids))}
		encoding.ForEachCell(m.Radius, func(i, dx, dy, dz int) {
			out.Updates[i] = session.BlockUpdate{Pos: center.Add(action.Vec3i{X: dx, Y: dy, Z: dz}), Block: ids[i]}
		})
		return out, nil
	case protocol.VoxelsDelta:
		out := session.Voxels{Updates: make([]session.BlockUpdate, 0, len(m.Ops))}
		for _, op := range m.Ops {
			out.Updates = append(out.Updates, session.BlockUpdate{Pos: center.Add(action.Vec3iFromArray(op.D)), Block: op.Block})
		}
		return out, nil
	}
	return nil, fmt.Errorf("VOXELS: unknown encoding %q", m.Encoding)
}

func (c *Client) checkCatalogs(d protocol.CatalogDigests) {
	if c.cfg.Catalogs == nil {
		return
	}
	if d.BlockPalette.Digest != "" && d.BlockPalette.Digest != c.cfg.Catalogs.Blocks.PaletteDigest {
		c.log.Warn("block palette digest mismatch",
			zap.String("server", d.BlockPalette.Digest),
			zap.String("local", c.cfg.Catalogs.Blocks.PaletteDigest),
		)
	}
	if d.ItemPalette.Digest != "" && d.ItemPalette.Digest != c.cfg.Catalogs.Items.PaletteDigest {
		c.log.Warn("item palette digest mismatch",
			zap.String("server", d.ItemPalette.Digest),
			zap.String("local", c.cfg.Catalogs.Items.PaletteDigest),
		)
	}
}

var destroyActions = map[action.PacketKind]string{
	action.PacketStartDestroy: protocol.DestroyStart,
	action.PacketStopDestroy:  protocol.DestroyStop,
	action.PacketAbortDestroy: protocol.DestroyAbort,
}

func encodePacket(p action.Packet) any {
	if p.Kind == action.PacketPlace {
		return protocol.PlaceMsg{
			Type:            protocol.TypePlace,
			ProtocolVersion: protocol.Version,
			Hand:            p.Hand.String(),
			Pos:             p.Hit.Pos.ToArray(),
			Side:            p.Hit.Side.String(),
			Inside:          p.Hit.Inside,
			Seq:             p.Seq,
		}
	}
	return protocol.DestroyMsg{
		Type:            protocol.TypeDestroy,
		ProtocolVersion: protocol.Version,
		Action:          destroyActions[p.Kind],
		Pos:             p.Pos.ToArray(),
		Side:            p.Side.String(),
		Seq:             p.Seq,
	}
}
