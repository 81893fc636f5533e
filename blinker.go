package heterodyne

// Blinker is the liveness-indicator boundary. The control loop toggles it
// at a fixed human-visible interval; an external collaborator (an LED
// driver, a front panel) supplies the implementation.
type Blinker interface {
	Toggle(on bool)
}

type nullBlinker struct{}

func (nullBlinker) Toggle(bool) {}

// BlinkFunc adapts a plain function to the Blinker interface.
type BlinkFunc func(on bool)

// Toggle calls f.
func (f BlinkFunc) Toggle(on bool) { f(on) }
