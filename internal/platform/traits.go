package platform

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/canonica-labs/chkconf/internal/capabilities"
)

// Flags read when choosing traits.
const (
	FlagGUI              = "wxUSE_GUI"
	FlagConsoleEventLoop = "wxUSE_CONSOLE_EVENTLOOP"
	FlagUniversal        = "wxUSE_UNIVERSAL"
)

// MessageOutput delivers a user-visible message.
type MessageOutput interface {
	Output(msg string) error
}

// Renderer draws native controls.
type Renderer interface {
	Name() string
}

// EventLoop dispatches events.
type EventLoop interface {
	Kind() string
}

// ToolkitInfo identifies the port and toolkit version. Major 0 means no
// toolkit.
type ToolkitInfo struct {
	Port  Platform
	Major int
	Minor int
}

func (t ToolkitInfo) String() string {
	return fmt.Sprintf("%s %d.%d", t.Port, t.Major, t.Minor)
}

// Traits is the per-environment capability set, chosen once from the
// resolved flags.
type Traits interface {
	// CreateMessageOutput returns where messages go. w is the process error
	// stream.
	CreateMessageOutput(w io.Writer) MessageOutput

	// CreateRenderer returns nil when the port has no renderer.
	CreateRenderer() Renderer

	// CreateEventLoop returns nil when the event loop is compiled out.
	CreateEventLoop() EventLoop

	ToolkitVersion() ToolkitInfo
	IsUsingUniversalWidgets() bool
	DesktopEnvironment() string
	HasStderr() bool
	Capabilities() capabilities.CapabilitySet
}

// SelectTraits picks console or GUI traits for p from the resolved flags.
func SelectTraits(s *Selector, p Platform) (Traits, error) {
	gui, err := s.IsEnabled(FlagGUI)
	if err != nil {
		return nil, err
	}
	caps, err := capabilities.Gate(s)
	if err != nil {
		return nil, err
	}

	if !gui {
		loop, err := s.IsEnabled(FlagConsoleEventLoop)
		if err != nil {
			return nil, err
		}
		return &ConsoleTraits{platform: p, eventLoop: loop, caps: caps}, nil
	}

	univ, err := s.IsEnabled(FlagUniversal)
	if err != nil {
		return nil, err
	}
	return &GUITraits{platform: p, universal: univ, caps: caps}, nil
}

// ConsoleTraits serves applications without a GUI toolkit.
type ConsoleTraits struct {
	platform  Platform
	eventLoop bool
	caps      capabilities.CapabilitySet
}

func (c *ConsoleTraits) CreateMessageOutput(w io.Writer) MessageOutput {
	return &StreamOutput{W: w}
}

func (c *ConsoleTraits) CreateRenderer() Renderer { return nil }

func (c *ConsoleTraits) CreateEventLoop() EventLoop {
	if !c.eventLoop {
		return nil
	}
	return consoleLoop{}
}

// ToolkitVersion is always "base 0.0": console applications have no
// toolkit.
func (c *ConsoleTraits) ToolkitVersion() ToolkitInfo {
	return ToolkitInfo{Port: Base}
}

func (c *ConsoleTraits) IsUsingUniversalWidgets() bool { return false }
func (c *ConsoleTraits) DesktopEnvironment() string    { return "" }
func (c *ConsoleTraits) HasStderr() bool               { return true }

func (c *ConsoleTraits) Capabilities() capabilities.CapabilitySet { return c.caps }

// GUITraits serves applications built on a GUI port.
type GUITraits struct {
	platform  Platform
	universal bool
	caps      capabilities.CapabilitySet
}

// CreateMessageOutput writes to w where the port has a usable stderr and
// queues messages for a dialog otherwise.
func (g *GUITraits) CreateMessageOutput(w io.Writer) MessageOutput {
	if g.HasStderr() {
		return &StreamOutput{W: w}
	}
	return &QueuedOutput{}
}

func (g *GUITraits) CreateRenderer() Renderer {
	if g.universal {
		return nativeRenderer{name: "univ"}
	}
	return nativeRenderer{name: string(g.platform)}
}

func (g *GUITraits) CreateEventLoop() EventLoop {
	return guiLoop{port: g.platform}
}

func (g *GUITraits) ToolkitVersion() ToolkitInfo {
	v, ok := toolkitVersions[g.platform]
	if !ok {
		return ToolkitInfo{Port: g.platform, Major: 1}
	}
	return v
}

func (g *GUITraits) IsUsingUniversalWidgets() bool { return g.universal }

// DesktopEnvironment reports XDG_CURRENT_DESKTOP on X11-based ports.
func (g *GUITraits) DesktopEnvironment() string {
	switch g.platform {
	case GTK, X11, Motif:
		return os.Getenv("XDG_CURRENT_DESKTOP")
	default:
		return ""
	}
}

// HasStderr is false on Windows GUI ports, which have no console attached.
func (g *GUITraits) HasStderr() bool {
	return g.platform != MSW
}

func (g *GUITraits) Capabilities() capabilities.CapabilitySet { return g.caps }

var toolkitVersions = map[Platform]ToolkitInfo{
	MSW:     {Port: MSW, Major: 6, Minor: 1},
	GTK:     {Port: GTK, Major: 3, Minor: 0},
	OSX:     {Port: OSX, Major: 10, Minor: 7},
	X11:     {Port: X11, Major: 11, Minor: 0},
	Motif:   {Port: Motif, Major: 2, Minor: 3},
	DFB:     {Port: DFB, Major: 1, Minor: 4},
	Android: {Port: Android, Major: 4, Minor: 0},
	Univ:    {Port: Univ, Major: 1, Minor: 0},
	OS2:     {Port: OS2, Major: 4, Minor: 5},
}

// StreamOutput writes each message as a line to W.
type StreamOutput struct {
	W io.Writer
}

func (s *StreamOutput) Output(msg string) error {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, err := io.WriteString(s.W, msg)
	return err
}

// QueuedOutput keeps messages until they can be shown.
type QueuedOutput struct {
	mu       sync.Mutex
	messages []string
}

func (q *QueuedOutput) Output(msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

// Messages returns and clears the queued messages.
func (q *QueuedOutput) Messages() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.messages
	q.messages = nil
	return out
}

type nativeRenderer struct{ name string }

func (r nativeRenderer) Name() string { return r.name }

type consoleLoop struct{}

func (consoleLoop) Kind() string { return "console" }

type guiLoop struct{ port Platform }

func (l guiLoop) Kind() string { return "gui-" + string(l.port) }
