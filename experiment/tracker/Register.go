package tracker

// registeredTracker registers a Tracker with either training or
// evaluation episodes, so that the Tracker only tracks episodes of that
// kind. registeredTracker itself is a Tracker.
type registeredTracker struct {
	Tracker
	training bool
}

// Register returns a copy of t which only tracks training episodes if
// training is true and only evaluation episodes otherwise.
//
// Note: the underlying concrete type of the registered Tracker is
// lost when registering a Tracker.
func Register(t Tracker, training bool) Tracker {
	return &registeredTracker{t, training}
}

// Track calls Track() on the embedded Tracker if the episode is of the
// registered kind
func (r *registeredTracker) Track(e Episode) error {
	if e.Training != r.training {
		return nil
	}
	return r.Tracker.Track(e)
}

// Restore calls Restore() on the embedded Tracker if it is a Restorer
func (r *registeredTracker) Restore(n int) error {
	if rs, ok := r.Tracker.(Restorer); ok {
		return rs.Restore(n)
	}
	return nil
}
