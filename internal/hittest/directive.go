// Package hittest decides, per pointer move, whether the overlay window
// should capture the mouse or let it pass through to what is underneath.
package hittest

// Directive is a window-level mouse routing instruction.
type Directive struct {
	// Ignore makes the window transparent to clicks.
	Ignore bool `json:"ignore"`
	// Forward keeps pointer-move events flowing to the renderer while
	// clicks pass through.
	Forward bool `json:"forward"`
}

var (
	// Capture makes the window receive and consume mouse events.
	Capture = Directive{Ignore: false, Forward: false}
	// PassThrough ignores clicks but still forwards pointer moves so the
	// renderer can keep re-sampling.
	PassThrough = Directive{Ignore: true, Forward: true}
)

// Normalize enforces the forwarding rule: an ignoring directive always
// forwards pointer moves.
func (d Directive) Normalize() Directive {
	if d.Ignore {
		d.Forward = true
	}
	return d
}

func (d Directive) String() string {
	if d.Ignore {
		return "pass-through"
	}
	return "capture"
}

// Router applies directives to the live window.
type Router interface {
	Route(d Directive) error
}

// RouterFunc adapts a function to Router.
type RouterFunc func(d Directive) error

func (f RouterFunc) Route(d Directive) error { return f(d) }
