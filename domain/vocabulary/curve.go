package vocabulary

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/emergent-company/vocab/pkg/mathutil"
)

// ControlPoints are the two inner control points of a cubic Bezier curve
// anchored at (0,0) and (1,1).
type ControlPoints struct {
	X1, Y1, X2, Y2 float64
}

// Built-in curve profiles. The x coordinates stay within [0,1] so the
// curve is a function of normalized vocabulary position.
var curveProfiles = map[string]ControlPoints{
	"linear":      {1.0 / 3.0, 1.0 / 3.0, 2.0 / 3.0, 2.0 / 3.0},
	"ease":        {0.25, 0.10, 0.25, 1.00},
	"aggressive":  {0.10, 0.70, 0.30, 1.00},
	"gentle":      {0.60, 0.05, 0.90, 0.50},
	"exponential": {0.80, 0.00, 0.95, 0.20},
}

// ProfileCustom selects control points supplied by the operator
const ProfileCustom = "custom"

// Curve maps vocabulary size to pruning pressure in [0,1]. It is a pure
// value: evaluation has no side effects and no I/O.
type Curve struct {
	points    ControlPoints
	profile   string
	min       int
	max       int
	hardLimit int
}

// NewCurve builds a pressure curve for the given window. profile names a
// preset (or "custom", in which case points supplies "x1,y1,x2,y2").
// profilesPath optionally points at a YAML file overriding the presets.
func NewCurve(profile, points string, min, max, hardLimit int, profilesPath string) (*Curve, error) {
	if min <= 0 || max <= min || hardLimit <= max {
		return nil, fmt.Errorf("invalid window: min=%d max=%d hard_limit=%d", min, max, hardLimit)
	}

	profiles := curveProfiles
	if profilesPath != "" {
		loaded, err := loadProfiles(profilesPath)
		if err != nil {
			return nil, err
		}
		profiles = loaded
	}

	var cp ControlPoints
	if profile == ProfileCustom {
		parsed, err := parsePoints(points)
		if err != nil {
			return nil, err
		}
		cp = parsed
	} else {
		preset, ok := profiles[profile]
		if !ok {
			return nil, fmt.Errorf("unknown aggressiveness profile: %s", profile)
		}
		cp = preset
	}

	if cp.X1 < 0 || cp.X1 > 1 || cp.X2 < 0 || cp.X2 > 1 {
		return nil, fmt.Errorf("control point x coordinates must be in [0,1]")
	}

	return &Curve{
		points:    cp,
		profile:   profile,
		min:       min,
		max:       max,
		hardLimit: hardLimit,
	}, nil
}

// Profile returns the profile name the curve was built from
func (c *Curve) Profile() string {
	return c.profile
}

// Points returns the curve's control points
func (c *Curve) Points() ControlPoints {
	return c.points
}

// Window returns the (min, max, hardLimit) bounds
func (c *Curve) Window() (int, int, int) {
	return c.min, c.max, c.hardLimit
}

// Blocked reports whether size has reached the hard limit
func (c *Curve) Blocked(size int) bool {
	return size >= c.hardLimit
}

// Pressure maps a vocabulary size to a pressure scalar in [0,1].
// Below min the pressure is zero. Between min and max the normalized
// position runs through the Bezier curve. Between max and hardLimit the
// curve output is boosted toward 1 proportionally to the overflow, and
// at hardLimit and beyond pressure is pinned to 1.
func (c *Curve) Pressure(size int) float64 {
	if size <= c.min {
		return 0
	}
	if size >= c.hardLimit {
		return 1
	}

	p := mathutil.Clamp(float64(size-c.min)/float64(c.max-c.min), 0, 1)
	base := mathutil.Clamp(c.bezierY(p), 0, 1)

	if size > c.max {
		overflow := float64(size-c.max) / float64(c.hardLimit-c.max)
		base = base + (1-base)*overflow
	}

	return mathutil.Clamp(base, 0, 1)
}

// bezierY evaluates the curve at horizontal position x by solving the
// cubic x(t) = x for t, then evaluating y(t). x(t) is monotonic because
// both control x coordinates lie in [0,1], so bisection converges.
func (c *Curve) bezierY(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lo, hi := 0.0, 1.0
	t := x
	for i := 0; i < 48; i++ {
		xt := bezierComponent(t, c.points.X1, c.points.X2)
		if xt < x {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}

	return bezierComponent(t, c.points.Y1, c.points.Y2)
}

// bezierComponent evaluates one coordinate of a cubic Bezier with
// anchors 0 and 1 and inner control values c1, c2.
func bezierComponent(t, c1, c2 float64) float64 {
	u := 1 - t
	return 3*u*u*t*c1 + 3*u*t*t*c2 + t*t*t
}

func parsePoints(s string) (ControlPoints, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return ControlPoints{}, fmt.Errorf("custom profile requires 4 control values (x1,y1,x2,y2), got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ControlPoints{}, fmt.Errorf("invalid control value %q: %w", p, err)
		}
		vals[i] = v
	}
	return ControlPoints{vals[0], vals[1], vals[2], vals[3]}, nil
}

// loadProfiles reads curve presets from a YAML file of the form
// `name: [x1, y1, x2, y2]`. Missing names fall back to the built-ins.
func loadProfiles(path string) (map[string]ControlPoints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curve profiles: %w", err)
	}

	var raw map[string][]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse curve profiles: %w", err)
	}

	profiles := make(map[string]ControlPoints, len(curveProfiles)+len(raw))
	for name, cp := range curveProfiles {
		profiles[name] = cp
	}
	for name, vals := range raw {
		if len(vals) != 4 {
			return nil, fmt.Errorf("profile %q must have 4 control values, got %d", name, len(vals))
		}
		profiles[name] = ControlPoints{vals[0], vals[1], vals[2], vals[3]}
	}
	return profiles, nil
}
