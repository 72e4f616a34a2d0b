package hw

import (
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var announceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))

// Console prints announcements.
type Console struct {
	Out io.Writer
}

// Announce prints msg on its own line.
func (c Console) Announce(msg string) {
	fmt.Fprintln(c.Out, announceStyle.Render("» "+msg))
}

// Espeak speaks announcements with the espeak program. A message is
// dropped while the previous one is still being spoken.
type Espeak struct {
	Voice string

	mu       sync.Mutex
	speaking bool
}

// NewEspeak returns a speaking announcer, or nil when espeak is not
// installed.
func NewEspeak(voice string) *Espeak {
	if _, err := exec.LookPath("espeak"); err != nil {
		return nil
	}
	return &Espeak{Voice: voice}
}

// Announce starts speaking msg and returns immediately.
func (e *Espeak) Announce(msg string) {
	e.mu.Lock()
	if e.speaking {
		e.mu.Unlock()
		return
	}
	e.speaking = true
	e.mu.Unlock()

	args := []string{msg}
	if e.Voice != "" {
		args = append([]string{"-v", e.Voice}, args...)
	}
	cmd := exec.Command("espeak", args...)
	if err := cmd.Start(); err != nil {
		e.done()
		return
	}
	go func() {
		cmd.Wait()
		e.done()
	}()
}

func (e *Espeak) done() {
	e.mu.Lock()
	e.speaking = false
	e.mu.Unlock()
}
