package maproom

import (
	"sync"

	"github.com/marcheroute/marcheroute/internal/overlay"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/websocket"
	"go.uber.org/zap"
)

// Command types pushed to the browser map page.
const (
	CommandInit          = "map.init"
	CommandAddOverlay    = "map.add_overlay"
	CommandRemoveOverlay = "map.remove_overlay"
	CommandFitBounds     = "map.fit_bounds"
	CommandDestroy       = "map.destroy"
)

// Camera is the initial viewport of a fresh map session.
type Camera struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      float64 `json:"zoom"`
}

// Config describes how new map sessions are initialized.
type Config struct {
	StyleURL string
	Camera   Camera
}

// Session is one owned map handle. The source/layer registry mirrors what
// the browser widget holds, so overlay state is inspectable without a
// browser.
type Session struct {
	mu       sync.Mutex
	id       string
	hub      *websocket.Hub
	overlays map[string]*overlay.Feature
}

// ID returns the walk id the session belongs to.
func (s *Session) ID() string {
	return s.id
}

// AddOverlay registers feature under id and pushes the draw command. A
// previous overlay under the same id is removed first, so repeated draws
// leave exactly one overlay per id.
func (s *Session) AddOverlay(id string, feature *overlay.Feature) {
	s.mu.Lock()
	_, existed := s.overlays[id]
	s.overlays[id] = feature
	s.mu.Unlock()

	if existed {
		s.push(CommandRemoveOverlay, map[string]interface{}{"id": id})
	}
	s.push(CommandAddOverlay, map[string]interface{}{
		"id":      id,
		"feature": feature,
	})
}

// RemoveOverlay drops the overlay under id. Unknown ids are a no-op.
func (s *Session) RemoveOverlay(id string) {
	s.mu.Lock()
	_, existed := s.overlays[id]
	delete(s.overlays, id)
	s.mu.Unlock()

	if !existed {
		return
	}
	s.push(CommandRemoveOverlay, map[string]interface{}{"id": id})
}

// FitBounds moves the camera to cover bbox with the given pixel padding.
func (s *Session) FitBounds(bbox overlay.BBox, padding int) {
	s.push(CommandFitBounds, map[string]interface{}{
		"bounds":  bbox,
		"padding": padding,
	})
}

// Overlay returns the registered feature under id.
func (s *Session) Overlay(id string) (*overlay.Feature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feature, ok := s.overlays[id]
	return feature, ok
}

// OverlayCount returns how many overlays the session holds.
func (s *Session) OverlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.overlays)
}

func (s *Session) push(commandType string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(websocket.Message{
		Type: commandType,
		Room: s.id,
		Data: data,
	})
}

// Manager owns the map sessions, one per walk at most.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	hub      *websocket.Hub
	sessions map[string]*Session
}

// NewManager creates an empty session registry. hub may be nil in tests; the
// registry then tracks state without pushing commands.
func NewManager(cfg Config, hub *websocket.Hub) *Manager {
	return &Manager{
		cfg:      cfg,
		hub:      hub,
		sessions: make(map[string]*Session),
	}
}

// Ensure returns the session for walkID, creating it on first call. The
// second return value reports whether this call created it. Only creation
// pushes the init command, so a walk's map initializes at most once.
func (m *Manager) Ensure(walkID string) (*Session, bool) {
	m.mu.Lock()
	if session, ok := m.sessions[walkID]; ok {
		m.mu.Unlock()
		return session, false
	}

	session := &Session{
		id:       walkID,
		hub:      m.hub,
		overlays: make(map[string]*overlay.Feature),
	}
	m.sessions[walkID] = session
	m.mu.Unlock()

	session.push(CommandInit, map[string]interface{}{
		"style":  m.cfg.StyleURL,
		"camera": m.cfg.Camera,
	})

	logger.Debug("Map session created", zap.String("walk_id", walkID))
	return session, true
}

// Lookup returns the session for walkID if one exists.
func (m *Manager) Lookup(walkID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[walkID]
	return session, ok
}

// Release tears the session down and notifies the page. Releasing an unknown
// walk is a no-op.
func (m *Manager) Release(walkID string) {
	m.mu.Lock()
	session, ok := m.sessions[walkID]
	delete(m.sessions, walkID)
	m.mu.Unlock()

	if !ok {
		return
	}

	session.push(CommandDestroy, nil)
	logger.Debug("Map session released", zap.String("walk_id", walkID))
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
