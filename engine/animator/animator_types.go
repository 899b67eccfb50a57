package animator

// TickContext carries the per-tick values threaded through the blend pass.
// The Stamp is unique per blended tick of one Animator and is compared against each node's
// blend scratch to detect the first track touching that node in the tick.
type TickContext struct {
	// Stamp identifies the tick being blended. Zero never identifies a tick.
	Stamp uint64
}

// Observer receives track lifecycle notifications.
//
// Observers registered on a Track see only that track; observers registered on an Animator see
// every track it owns. Track observers are notified before Animator observers. Callbacks may play
// or stop tracks, including the one being reported.
type Observer interface {
	// AnimationStarted is called each time a track is played.
	//
	// Parameters:
	//   - t: the track that started
	AnimationStarted(t Track)

	// AnimationStopped is called once when a track leaves playback, either by cancellation
	// (weight ramped to zero) or by natural completion of a non-looping clip.
	//
	// Parameters:
	//   - t: the track that stopped
	//   - completed: true for natural completion, false for cancellation
	AnimationStopped(t Track, completed bool)
}

// ObserverFuncs adapts plain functions to the Observer interface. Either field may be nil.
// Register it by pointer so RemoveObserver can find it again.
type ObserverFuncs struct {
	OnStarted func(t Track)
	OnStopped func(t Track, completed bool)
}

var _ Observer = &ObserverFuncs{}

func (o *ObserverFuncs) AnimationStarted(t Track) {
	if o.OnStarted != nil {
		o.OnStarted(t)
	}
}

func (o *ObserverFuncs) AnimationStopped(t Track, completed bool) {
	if o.OnStopped != nil {
		o.OnStopped(t, completed)
	}
}

// observerList is an ordered set of observers that tolerates mutation during notification.
type observerList []Observer

func (l *observerList) add(o Observer) {
	for _, existing := range *l {
		if existing == o {
			return
		}
	}
	*l = append(*l, o)
}

func (l *observerList) remove(o Observer) {
	for i, existing := range *l {
		if existing == o {
			*l = append((*l)[:i:i], (*l)[i+1:]...)
			return
		}
	}
}

// started notifies a copy of the list so observers may add or remove observers from the callback.
func (l observerList) started(t Track) {
	if len(l) == 0 {
		return
	}
	snapshot := make([]Observer, len(l))
	copy(snapshot, l)
	for _, o := range snapshot {
		o.AnimationStarted(t)
	}
}

func (l observerList) stopped(t Track, completed bool) {
	if len(l) == 0 {
		return
	}
	snapshot := make([]Observer, len(l))
	copy(snapshot, l)
	for _, o := range snapshot {
		o.AnimationStopped(t, completed)
	}
}
