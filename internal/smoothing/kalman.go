package smoothing

// kalman1D is a scalar Kalman filter with a constant-position model. The first
// measurement seeds the estimate.
type kalman1D struct {
	q, r        float64
	estimate    float64
	covariance  float64
	initialized bool
}

func newKalman1D(q, r float64) *kalman1D {
	return &kalman1D{q: q, r: r, covariance: 1}
}

func (k *kalman1D) update(z float64) float64 {
	if !k.initialized {
		k.estimate = z
		k.initialized = true
		return z
	}
	predicted := k.covariance + k.q
	gain := predicted / (predicted + k.r)
	k.estimate += gain * (z - k.estimate)
	k.covariance = (1 - gain) * predicted
	return k.estimate
}
