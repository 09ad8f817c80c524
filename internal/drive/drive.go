// v1
// internal/drive/drive.go
package drive

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"amlio/rover/internal/distance"
)

type Direction string

const (
	Forward      Direction = "avance"
	Backward     Direction = "recule"
	Left         Direction = "gauche"
	Right        Direction = "droite"
	ForwardRight Direction = "avancedroite"
	ForwardLeft  Direction = "avancegauche"
	BackRight    Direction = "reculedroite"
	BackLeft     Direction = "reculegauche"
	Stopped      Direction = "stop"
)

type Mode string

const (
	Manual Mode = "manual"
	Auto   Mode = "auto"
)

var (
	ErrUnknownDirection = errors.New("unknown command")
	ErrSpeedRange       = errors.New("speed must be within 0..100")
	ErrAutoMode         = errors.New("manual commands are ignored in auto mode")
)

// ObstacleStatus is reported by Status when a sensor sees something closer
// than the obstacle threshold while driving on its own.
const ObstacleStatus = "Obstacle détecté"

var phrases = map[Direction]string{
	Forward:      "avance",
	Backward:     "recule",
	Left:         "tourne à gauche",
	Right:        "tourne à droite",
	ForwardRight: "avance à droite",
	ForwardLeft:  "avance à gauche",
	BackRight:    "recule à droite",
	BackLeft:     "recule à gauche",
	Stopped:      "arrêté",
}

// ParseDirection maps a path segment to a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := phrases[d]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownDirection)
	}
	return d, nil
}

// State is a snapshot of the motors and the driving mode.
type State struct {
	Direction Direction `json:"direction"`
	Speed     int       `json:"speed"`
	Mode      Mode      `json:"mode"`
}

// Controller owns the motion state. Manual commands come from the HTTP
// handlers; in auto mode Observe steers from the distance readings.
type Controller struct {
	log *slog.Logger

	mu         sync.Mutex
	state      State
	obstacleCM float64
	lastSeen   distance.Reading
}

// NewController starts stopped, in manual mode, at defaultSpeed.
func NewController(log *slog.Logger, defaultSpeed int, obstacleCM float64) *Controller {
	return &Controller{
		log:        log,
		state:      State{Direction: Stopped, Speed: defaultSpeed, Mode: Manual},
		obstacleCM: obstacleCM,
	}
}

// State returns a snapshot of the motion state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Move applies a manual command.
func (c *Controller) Move(dir Direction, speed int) (State, error) {
	if speed < 0 || speed > 100 {
		return State{}, fmt.Errorf("speed=%d: %w", speed, ErrSpeedRange)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode == Auto {
		return c.state, ErrAutoMode
	}
	c.state.Direction = dir
	c.state.Speed = speed
	c.log.Info("move", "direction", dir, "speed", speed)
	return c.state, nil
}

// Stop halts the motors in either mode.
func (c *Controller) Stop() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Direction = Stopped
	c.log.Info("stop")
	return c.state
}

// EnableAuto hands steering to the autopilot, which immediately decides
// from the last reading it has seen.
func (c *Controller) EnableAuto() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != Auto {
		c.state.Mode = Auto
		c.state.Direction = c.decide(c.lastSeen)
		c.log.Info("auto mode enabled", "direction", c.state.Direction)
	}
	return c.state
}

// DisableAuto returns to manual mode with the motors stopped.
func (c *Controller) DisableAuto() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = Manual
	c.state.Direction = Stopped
	c.log.Info("auto mode disabled")
	return c.state
}

// SetObstacleThreshold changes the distance under which a side counts as
// blocked.
func (c *Controller) SetObstacleThreshold(cm float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obstacleCM = cm
}

// Observe records the latest reading and, in auto mode, steers.
func (c *Controller) Observe(r distance.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = r
	if c.state.Mode != Auto {
		return
	}
	next := c.decide(r)
	if next != c.state.Direction {
		c.log.Info("autopilot", "direction", next, "gauche", r.Left, "droite", r.Right)
		c.state.Direction = next
	}
}

// Status is the text served on /etat.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != Auto {
		return "Mode manuel"
	}
	if c.blocked(c.lastSeen) {
		return ObstacleStatus + " : " + phrases[c.state.Direction]
	}
	return phrases[c.state.Direction]
}

func (c *Controller) blocked(r distance.Reading) bool {
	return r.Min() < c.obstacleCM
}

// decide goes straight when both sides are clear, turns toward the side
// with more room when one is blocked and backs off when both are.
func (c *Controller) decide(r distance.Reading) Direction {
	leftClear := r.Left >= c.obstacleCM
	rightClear := r.Right >= c.obstacleCM
	switch {
	case leftClear && rightClear:
		return Forward
	case !leftClear && !rightClear:
		return Backward
	case r.Left > r.Right:
		return Left
	default:
		return Right
	}
}
