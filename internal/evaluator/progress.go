package evaluator

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const (
	disableLineWrap = "\x1b[?7l"
	enableLineWrap  = "\x1b[?7h"
	clearLine       = "\x1b[2K\r"
)

// progress renders a single re-written status line naming every currently
// running match, matching spec.md §4.6's "mutex-guarded running list,
// re-rendered on start/finish with clear-line, colored spans, cursor-to-
// column-0" behavior.
type progress struct {
	mu      sync.Mutex
	running map[string]struct{}
	out     io.Writer
	style   lipgloss.Style
	started bool
}

func newProgress() *progress {
	return &progress{
		running: map[string]struct{}{},
		out:     os.Stderr,
		style:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func (p *progress) start(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		fmt.Fprint(p.out, disableLineWrap)
		p.started = true
	}
	p.running[label] = struct{}{}
	p.render()
}

func (p *progress) finish(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, label)
	p.render()
}

// render must be called with mu held.
func (p *progress) render() {
	labels := make([]string, 0, len(p.running))
	for l := range p.running {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	line := fmt.Sprintf("running (%d): %s", len(labels), strings.Join(labels, ", "))
	fmt.Fprint(p.out, clearLine+p.style.Render(line))
}

// close restores line wrap and clears the status line; called on normal
// completion and from the panic-recovery hook.
func (p *progress) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	fmt.Fprint(p.out, clearLine+enableLineWrap+"\n")
	p.started = false
}
