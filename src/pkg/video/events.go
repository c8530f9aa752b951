package video

// Event is a native window-system event waiting in a Queue.
type Event interface {
	isEvent()
}

// ActiveState is the set of focus kinds an ActiveEvent changes.
type ActiveState uint8

const (
	AppMouseFocus ActiveState = 1 << iota
	AppInputFocus
	AppActive
)

// ButtonMask holds one bit per pressed mouse button; bit 0 is button 1.
type ButtonMask uint8

// ButtonBit returns the mask bit for a 1-based button number.
func ButtonBit(button int) ButtonMask {
	if button < 1 || button > 8 {
		return 0
	}
	return 1 << (button - 1)
}

// Mouse button numbers.
const (
	ButtonLeft      = 1
	ButtonMiddle    = 2
	ButtonRight     = 3
	ButtonWheelUp   = 4
	ButtonWheelDown = 5
)

type QuitEvent struct{}

// ActiveEvent reports focus gained or lost for every kind set in State.
type ActiveEvent struct {
	Gain  bool
	State ActiveState
}

type ResizeEvent struct {
	W, H int
}

type MouseButtonEvent struct {
	Button  int
	Pressed bool
	X, Y    int
}

type MouseMotionEvent struct {
	State      ButtonMask
	X, Y       int
	XRel, YRel int
}

type KeyEvent struct {
	Name    string
	Pressed bool
}

// UserEvent carries an opaque id that the pushing side resolves on delivery.
type UserEvent struct {
	Code int
	ID   uint64
}

func (QuitEvent) isEvent()        {}
func (ActiveEvent) isEvent()      {}
func (ResizeEvent) isEvent()      {}
func (MouseButtonEvent) isEvent() {}
func (MouseMotionEvent) isEvent() {}
func (KeyEvent) isEvent()         {}
func (UserEvent) isEvent()        {}
