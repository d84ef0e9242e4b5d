package kbench

// State tracks which implementation is executing and whether it is being
// driven by a plugin. The harness sets both immediately before invoking an
// implementation; nothing resets them automatically.
type State struct {
	_ noCopy

	usingPlugin bool
	implName    string
}

// NewState returns an empty State
func NewState() *State {
	return &State{}
}

// UsingPlugin reports whether the current implementation runs under a plugin
func (s *State) UsingPlugin() bool { return s.usingPlugin }

// SetUsingPlugin sets the plugin flag
func (s *State) SetUsingPlugin(v bool) { s.usingPlugin = v }

// ImplName returns the display name of the current implementation
func (s *State) ImplName() string { return s.implName }

// SetImplName sets the display name of the current implementation
func (s *State) SetImplName(name string) { s.implName = name }
