// Package tui is a read-only terminal browser over an extracted conversation.
package tui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/imsgx/internal/store"
	"github.com/rivo/tview"
)

const (
	pageConversation = "conversation"
	pageSearch       = "search"

	searchLimit = 200
	flashFor    = 5 * time.Second
)

// Source is the part of the output store the browser reads.
type Source interface {
	ListConversation(limit, offset int) ([]store.ConversationRecord, error)
	Search(keyword string, limit int) ([]store.ConversationRecord, error)
	Summary() ([]store.ServiceCount, error)
	LatestRun() (*store.Run, error)
}

// App is the browser shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	src      Source
	registry *Registry
	conv     *ConversationView
	search   *SearchView
	status   *StatusBar
}

// NewApp builds the browser over src. Nothing is read until Run.
func NewApp(src Source) *App {
	theme := DefaultTheme()
	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		src:      src,
		registry: NewRegistry(),
		conv:     NewConversationView(theme),
		search:   NewSearchView(theme),
		status:   NewStatusBar(theme),
	}
	a.setupBindings()
	a.setupLayout()
	a.search.SetOnQuery(a.runSearch)
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "q:quit", Handler: a.app.Stop})
	a.registry.AddPage(pageConversation, &Action{Key: tcell.KeyRune, Rune: '/', Description: "/:search", Handler: a.showSearch})
	a.registry.AddPage(pageConversation, &Action{Key: tcell.KeyRune, Rune: 'r', Description: "r:reload", Handler: func() {
		if err := a.Load(); err != nil {
			a.status.Flash("Reload failed: "+err.Error(), flashFor)
		}
	}})
	a.registry.AddPage(pageConversation, &Action{Key: tcell.KeyRune, Rune: 'g', Description: "g:top", Handler: func() { a.conv.ScrollToBeginning() }})
	a.registry.AddPage(pageConversation, &Action{Key: tcell.KeyRune, Rune: 'G', Description: "G:end", Handler: func() { a.conv.ScrollToEnd() }})
	a.registry.AddPage(pageSearch, &Action{Key: tcell.KeyEscape, Description: "esc:back", Handler: a.showConversation})
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageConversation, a.conv, true, true)
	a.pages.AddPage(pageSearch, a.search, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.status, 1, 0, false)
	a.app.SetRoot(root, true)

	a.search.Results().SetSelectedFunc(func(int, int) {
		if r, ok := a.search.Selected(); ok {
			a.status.Flash(fmt.Sprintf("%s %s", r.FormattedDate, r.Service), flashFor)
		}
	})

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()
		if _, ok := a.app.GetFocus().(*tview.InputField); ok && event.Key() != tcell.KeyEscape {
			return event
		}
		if a.registry.HandleEvent(page, event) {
			return nil
		}
		return event
	})
}

// Load reads the conversation, summary and last run into the views.
func (a *App) Load() error {
	records, err := a.src.ListConversation(0, 0)
	if err != nil {
		return err
	}
	counts, err := a.src.Summary()
	if err != nil {
		return err
	}
	run, err := a.src.LatestRun()
	if err != nil {
		return err
	}
	a.conv.Update(records)
	a.status.SetSummary(counts)
	a.status.SetRun(run)
	if len(records) == 0 {
		a.status.Flash("No conversation extracted yet; run imsgx extract first", flashFor)
	}
	return nil
}

func (a *App) runSearch(keyword string) {
	if keyword == "" {
		return
	}
	records, err := a.src.Search(keyword, searchLimit)
	if err != nil {
		a.status.Flash("Search failed: "+err.Error(), flashFor)
		return
	}
	a.search.Update(records)
	a.app.SetFocus(a.search.Results())
}

func (a *App) showSearch() {
	a.pages.SwitchToPage(pageSearch)
	a.status.SetHints(a.registry.Hints(pageSearch))
	a.app.SetFocus(a.search.Input())
}

func (a *App) showConversation() {
	a.pages.SwitchToPage(pageConversation)
	a.status.SetHints(a.registry.Hints(pageConversation))
	a.app.SetFocus(a.conv)
}

// Run loads the data and blocks until the user quits.
func (a *App) Run() error {
	if err := a.Load(); err != nil {
		return err
	}
	a.status.SetHints(a.registry.Hints(pageConversation))
	return a.app.Run()
}
