package compose

// ComposerMode holds the behavioral switches separating composite from virtual output.
type ComposerMode struct {
	IndexOnly      bool // results never reach the stored event
	Framed         bool // start/end separators frame each appended value
	SuppressEvents bool // overloaded definitions keep only the first contribution on the event side
}

var (
	compositeMode = ComposerMode{IndexOnly: true, SuppressEvents: true}
	virtualMode   = ComposerMode{Framed: true}
)

// Behavior returns the composer switches for m.
func (m Mode) Behavior() ComposerMode {
	if m == Virtual {
		return virtualMode
	}
	return compositeMode
}
