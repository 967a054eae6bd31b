package pager

// Edge names one end of the indicator strip.
type Edge string

const (
	EdgePrevious Edge = "previous"
	EdgeNext     Edge = "next"
)

// Display receives the commands a controller emits. Implementations only
// render; they never write back into controller state.
type Display interface {
	ActivateSlide(index int)
	DeactivateSlide(index int)
	SetStripOffset(px int)
	SetEdgeEnabled(edge Edge, enabled bool)
	// SetFragment asks the host to reflect key in the address bar.
	SetFragment(key string)
	// ScrollToSlide asks the host to bring the slide content into view.
	ScrollToSlide(index int)
}

// Op identifies a recorded display command.
type Op string

const (
	OpActivateSlide   Op = "activateSlide"
	OpDeactivateSlide Op = "deactivateSlide"
	OpSetStripOffset  Op = "setStripOffset"
	OpSetEdgeEnabled  Op = "setEdgeEnabled"
	OpSetFragment     Op = "setFragment"
	OpScrollToSlide   Op = "scrollToSlide"
)

// Command is one display command as a value, ready to be sent to a browser.
type Command struct {
	Op      Op     `json:"op"`
	Index   int    `json:"index"`
	Offset  int    `json:"offset"`
	Edge    Edge   `json:"edge,omitempty"`
	Enabled bool   `json:"enabled"`
	Key     string `json:"key,omitempty"`
}

// Recorder is a Display that buffers commands in emission order.
type Recorder struct {
	commands []Command
}

func (r *Recorder) ActivateSlide(index int) {
	r.commands = append(r.commands, Command{Op: OpActivateSlide, Index: index})
}

func (r *Recorder) DeactivateSlide(index int) {
	r.commands = append(r.commands, Command{Op: OpDeactivateSlide, Index: index})
}

func (r *Recorder) SetStripOffset(px int) {
	r.commands = append(r.commands, Command{Op: OpSetStripOffset, Offset: px})
}

func (r *Recorder) SetEdgeEnabled(edge Edge, enabled bool) {
	r.commands = append(r.commands, Command{Op: OpSetEdgeEnabled, Edge: edge, Enabled: enabled})
}

func (r *Recorder) SetFragment(key string) {
	r.commands = append(r.commands, Command{Op: OpSetFragment, Key: key})
}

func (r *Recorder) ScrollToSlide(index int) {
	r.commands = append(r.commands, Command{Op: OpScrollToSlide, Index: index})
}

// Commands returns the buffered commands without clearing them.
func (r *Recorder) Commands() []Command {
	return r.commands
}

// Flush returns the buffered commands and resets the buffer.
func (r *Recorder) Flush() []Command {
	out := r.commands
	r.commands = nil
	return out
}

type discard struct{}

func (discard) ActivateSlide(int) {}
func (discard) DeactivateSlide(int) {}
func (discard) SetStripOffset(int) {}
func (discard) SetEdgeEnabled(Edge, bool) {}
func (discard) SetFragment(string) {}
func (discard) ScrollToSlide(int) {}
