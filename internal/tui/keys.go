package tui

import "github.com/gdamore/tcell/v2"

// Action is a key binding.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
}

// Matches reports whether ev triggers the action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds global bindings and per-page bindings. Page bindings win.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = append(r.pages[page], a)
}

// Hints lists the descriptions active on page, page bindings first.
func (r *Registry) Hints(page string) []string {
	var hints []string
	for _, a := range r.pages[page] {
		hints = append(hints, a.Description)
	}
	for _, a := range r.global {
		hints = append(hints, a.Description)
	}
	return hints
}

// HandleEvent runs the first binding on page matching ev and reports whether
// one ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, list := range [][]*Action{r.pages[page], r.global} {
		for _, a := range list {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
