package app

import (
	"sync"
	"time"

	"tilewalk/client/internal/config"
	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/movement"
	"tilewalk/client/internal/net/ws"
)

// staticTiles is a rectangular walkable area on layer 0 with fixed obstacles.
type staticTiles struct {
	width, height int
	baseCost      int
	blocked       map[grid.Coordinate]bool
}

func newStaticTiles(cfg config.MapConfig) *staticTiles {
	tiles := &staticTiles{
		width:    cfg.Width,
		height:   cfg.Height,
		baseCost: cfg.BaseCost,
		blocked:  make(map[grid.Coordinate]bool, len(cfg.Obstacles)),
	}
	for _, obstacle := range cfg.Obstacles {
		tiles.blocked[grid.At(obstacle[0], obstacle[1], 0)] = true
	}
	return tiles
}

func (s *staticTiles) IsBlocked(c grid.Coordinate) bool {
	if c.Layer != 0 || c.X < 0 || c.Y < 0 || c.X >= s.width || c.Y >= s.height {
		return true
	}
	return s.blocked[c]
}

func (s *staticTiles) MovementCost(grid.Coordinate) int {
	return s.baseCost
}

var _ motion.TileOracle = (*staticTiles)(nil)

// renderState records what a renderer would draw. The coordinator worker
// writes it; the status command reads it.
type renderState struct {
	mu       sync.Mutex
	location grid.Coordinate
	facing   grid.Direction
	moving   bool
	mode     motion.Mode
	progress float64
}

func (r *renderState) SetLocation(at grid.Coordinate) {
	r.mu.Lock()
	r.location = at
	r.moving = false
	r.progress = 0
	r.mu.Unlock()
}

func (r *renderState) SetMoveProgress(_, _ grid.Coordinate, mode motion.Mode, progress float64) {
	r.mu.Lock()
	r.moving = true
	r.mode = mode
	r.progress = progress
	r.mu.Unlock()
}

func (r *renderState) SetFacing(dir grid.Direction) {
	r.mu.Lock()
	r.facing = dir
	r.mu.Unlock()
}

type renderView struct {
	Location grid.Coordinate
	Facing   grid.Direction
	Moving   bool
	Mode     motion.Mode
	Progress float64
}

func (r *renderState) view() renderView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return renderView{Location: r.location, Facing: r.facing, Moving: r.moving, Mode: r.mode, Progress: r.progress}
}

// transport forwards to the websocket client once it is connected. The
// coordinator needs a network before the client can be dialed with the
// coordinator as its event sink.
type transport struct {
	mu     sync.RWMutex
	client *ws.Client
}

func (t *transport) attach(client *ws.Client) {
	t.mu.Lock()
	t.client = client
	t.mu.Unlock()
}

func (t *transport) current() *ws.Client {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client
}

func (t *transport) SendCommand(cmd movement.Command) error {
	client := t.current()
	if client == nil {
		return ws.ErrClosed
	}
	return client.SendCommand(cmd)
}

func (t *transport) Ping() time.Duration {
	client := t.current()
	if client == nil {
		return 0
	}
	return client.Ping()
}
