package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows an animated progress indicator on the error stream. On
// non-terminal output it degrades to printing the message once.
type Spinner struct {
	w       io.Writer
	msg     string
	styles  *Styles
	animate bool

	mu      sync.Mutex
	active  bool
	done    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner bound to the renderer's error stream.
func (r *Renderer) NewSpinner(msg string) *Spinner {
	return &Spinner{
		w:       r.errOut,
		msg:     msg,
		styles:  r.styles,
		animate: r.isTTY && r.EffectiveMode() == ModeText,
	}
}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	if !s.animate {
		fmt.Fprintln(s.w, s.msg)
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-s.done:
			// Erase the animation line before the final message.
			fmt.Fprint(s.w, "\r\x1b[2K")
			return
		case <-ticker.C:
			frame := s.styles.Info.Render(spinnerFrames[i%len(spinnerFrames)])
			fmt.Fprintf(s.w, "\r%s %s", frame, s.msg)
			i++
		}
	}
}

// Stop halts the animation without printing a final message.
func (s *Spinner) Stop() {
	s.finish("")
}

// Success halts the animation and prints a confirmation line.
func (s *Spinner) Success(msg string) {
	s.finish(s.styles.Success.Render("✓") + " " + msg)
}

// Fail halts the animation and prints a failure line.
func (s *Spinner) Fail(msg string) {
	s.finish(s.styles.Error.Render("✗") + " " + msg)
}

func (s *Spinner) finish(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	if s.animate {
		close(s.done)
		<-s.stopped
	}
	if line != "" {
		fmt.Fprintln(s.w, line)
	}
}
