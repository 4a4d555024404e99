package optimization

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// ChannelMin and ChannelMax bound every RGB channel value.
	ChannelMin = 0
	ChannelMax = 255

	// PaletteSize is the number of colors in a generated palette.
	PaletteSize = 5

	// VectorLen is the number of genes in a solution vector (five RGB triples).
	VectorLen = PaletteSize * 3
)

// Role identifies the purpose of one color in the palette.
type Role int

const (
	RoleAccent Role = iota
	RoleBackground
	RoleSurface
	RoleButtonText
	RoleMainText
)

var roleNames = [PaletteSize]string{"accent", "background", "surface", "button_text", "main_text"}

// Roles lists palette roles in vector order.
var Roles = [PaletteSize]Role{RoleAccent, RoleBackground, RoleSurface, RoleButtonText, RoleMainText}

func (r Role) String() string {
	if r < 0 || int(r) >= PaletteSize {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// RGB is a color with integer channels in [0, 255].
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Validate reports whether every channel is inside [0, 255].
func (c RGB) Validate() error {
	for _, ch := range [3]int{c.R, c.G, c.B} {
		if ch < ChannelMin || ch > ChannelMax {
			return WrapErrorf(ErrInvalidConfig, "color channel %d out of range [%d, %d]", ch, ChannelMin, ChannelMax).
				WithComponent("optimization").WithOperation("RGB.Validate")
		}
	}
	return nil
}

// Colorful converts the color into go-colorful's float representation.
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / ChannelMax,
		G: float64(c.G) / ChannelMax,
		B: float64(c.B) / ChannelMax,
	}
}

// Hex returns the color as a lowercase #rrggbb string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses a #rrggbb (or #rgb) color.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 || !isHexDigits(s[1:]) {
		return RGB{}, WrapErrorf(ErrInvalidConfig, "invalid anchor color %q: want #rgb or #rrggbb", s).
			WithComponent("optimization").WithOperation("ParseHex")
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, WrapErrorf(ErrInvalidConfig, "invalid anchor color %q: %v", s, err).
			WithComponent("optimization").WithOperation("ParseHex")
	}
	r, g, b := col.RGB255()
	return RGB{R: int(r), G: int(g), B: int(b)}, nil
}

func isHexDigits(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Vector is a candidate palette: five consecutive RGB triples ordered as Roles.
type Vector [VectorLen]int

// Color returns the RGB triple for the given role.
func (v Vector) Color(role Role) RGB {
	i := int(role) * 3
	return RGB{R: v[i], G: v[i+1], B: v[i+2]}
}

// Palette returns all five colors in role order.
func (v Vector) Palette() [PaletteSize]RGB {
	var p [PaletteSize]RGB
	for _, role := range Roles {
		p[role] = v.Color(role)
	}
	return p
}

// FitnessOracle scores a candidate vector against the anchor color.
// Higher is better. Implementations must be pure and deterministic.
type FitnessOracle interface {
	Evaluate(anchor RGB, candidate Vector) (float64, error)
}

// FitnessFunc adapts a plain function to FitnessOracle.
type FitnessFunc func(anchor RGB, candidate Vector) (float64, error)

// Evaluate calls f(anchor, candidate).
func (f FitnessFunc) Evaluate(anchor RGB, candidate Vector) (float64, error) {
	return f(anchor, candidate)
}

// MetricsRecord is one completed iteration of a run.
type MetricsRecord struct {
	Iteration   int     `json:"iteration"`
	Fitness     float64 `json:"fitness"`
	Temperature float64 `json:"temperature"`
}

// State is the lifecycle state of a search.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopped   State = "stopped"
	StateConverged State = "converged"
	StateExhausted State = "exhausted"
)

// Terminal reports whether no further iterations can run in this state.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateConverged || s == StateExhausted
}

// Config contains the per-run search parameters. It is captured at run start
// and never changes during a run.
type Config struct {
	// Patience is the number of consecutive iterations without an accepted
	// move tolerated before the run converges.
	Patience int `json:"patience"`

	// DecayRate is the geometric cooling factor as a percentage in [0, 100].
	DecayRate float64 `json:"decay_rate"`

	// MaxIterations caps the number of iterations of a run.
	MaxIterations int `json:"max_iterations"`

	// Seed for the run's random source. Zero selects a time-based seed.
	Seed int64 `json:"seed,omitempty"`
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	switch {
	case c.Patience < 0:
		return WrapErrorf(ErrInvalidConfig, "patience must be >= 0, got %d", c.Patience)
	case c.DecayRate < 0 || c.DecayRate > 100 || math.IsNaN(c.DecayRate):
		return WrapErrorf(ErrInvalidConfig, "decay rate must be in [0, 100], got %v", c.DecayRate)
	case c.MaxIterations <= 0:
		return WrapErrorf(ErrInvalidConfig, "max iterations must be > 0, got %d", c.MaxIterations)
	}
	return nil
}
