package cropper

// FloatRect is a crop window carried in floating point while it passes
// through the temporal smoother.
type FloatRect struct {
	X1, Y1, X2, Y2 float64
}

// Smoother applies an exponential moving average to successive crop windows
// to reduce frame-to-frame jitter. State is per job: a fresh Smoother must be
// constructed for every pipeline invocation.
type Smoother struct {
	alpha float64
	prev  *FloatRect
}

func NewSmoother(alpha float64) *Smoother {
	return &Smoother{alpha: alpha}
}

// Update folds the next raw window into the smoothed state. The first window
// becomes the initial state unchanged.
func (s *Smoother) Update(box FloatRect) FloatRect {
	if s.prev == nil {
		s.prev = &box
		return box
	}

	a := s.alpha
	smoothed := FloatRect{
		X1: a*s.prev.X1 + (1-a)*box.X1,
		Y1: a*s.prev.Y1 + (1-a)*box.Y1,
		X2: a*s.prev.X2 + (1-a)*box.X2,
		Y2: a*s.prev.Y2 + (1-a)*box.Y2,
	}
	s.prev = &smoothed
	return smoothed
}

// Current returns the smoothed window, or nil before the first update.
func (s *Smoother) Current() *FloatRect {
	return s.prev
}
