package app

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickClient
)

// Policy decides what happens to a viewer whose outbound queue is full.
type Policy interface {
	OnBackPressure(c *Client, event string) BackpressureAction
}

// SimplePolicy drops position updates, which are superseded by the next one anyway,
// and disconnects the viewer for anything else.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ *Client, event string) BackpressureAction {
	if event == EventSetPoseOf {
		return DropFrame
	}
	return KickClient
}
