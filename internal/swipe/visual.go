package swipe

// Frame is what a renderer needs to draw the top card.
type Frame struct {
	Cursor      int     `json:"cursor"`
	Total       int     `json:"total"`
	Phase       Phase   `json:"phase"`
	DX          float64 `json:"dx"`
	DY          float64 `json:"dy"`
	Rotation    float64 `json:"rotation"` // degrees
	LikeOpacity float64 `json:"like_opacity"`
	SkipOpacity float64 `json:"skip_opacity"`
}

// FrameOf derives the visual feedback for a state. Rotation and badge
// opacities carry no decision semantics.
func FrameOf(cfg Config, s State) Frame {
	return Frame{
		Cursor:      s.Cursor,
		Total:       s.Total,
		Phase:       s.Phase,
		DX:          s.DX,
		DY:          s.DY,
		Rotation:    Rotation(cfg, s.DX),
		LikeOpacity: LikeOpacity(cfg, s.DX),
		SkipOpacity: SkipOpacity(cfg, s.DX),
	}
}

// Rotation maps [-W/2, W/2] linearly onto [-MaxRotation, MaxRotation], clamped.
func Rotation(cfg Config, dx float64) float64 {
	half := cfg.ScreenWidth / 2
	return interpolate(dx, -half, half, -cfg.MaxRotation, cfg.MaxRotation)
}

// LikeOpacity fades the like badge in over [0, Threshold].
func LikeOpacity(cfg Config, dx float64) float64 {
	return interpolate(dx, 0, cfg.Threshold, 0, 1)
}

// SkipOpacity fades the skip badge in over [-Threshold, 0].
func SkipOpacity(cfg Config, dx float64) float64 {
	return interpolate(dx, -cfg.Threshold, 0, 1, 0)
}

func interpolate(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax <= inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	return outMin + (x-inMin)*(outMax-outMin)/(inMax-inMin)
}
