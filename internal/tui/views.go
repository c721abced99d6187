package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/imsgx/internal/store"
	"github.com/rivo/tview"
)

// Theme holds the browser colors.
type Theme struct {
	Bg       tcell.Color
	Fg       tcell.Color
	Border   tcell.Color
	Title    tcell.Color
	Sent     tcell.Color
	Received tcell.Color
	HeaderFg tcell.Color
	CursorFg tcell.Color
	CursorBg tcell.Color
	Key      tcell.Color
	Flash    tcell.Color
}

// DefaultTheme returns a dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		Bg:       tcell.ColorBlack,
		Fg:       tcell.ColorCadetBlue,
		Border:   tcell.ColorDodgerBlue,
		Title:    tcell.ColorFuchsia,
		Sent:     tcell.ColorAqua,
		Received: tcell.ColorPapayaWhip,
		HeaderFg: tcell.ColorWhite,
		CursorFg: tcell.ColorBlack,
		CursorBg: tcell.ColorAqua,
		Key:      tcell.ColorDodgerBlue,
		Flash:    tcell.ColorOrange,
	}
}

// ConversationView shows the whole extracted conversation, oldest first.
type ConversationView struct {
	*tview.TextView
	theme *Theme
}

func NewConversationView(theme *Theme) *ConversationView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.Border)
	tv.SetBackgroundColor(theme.Bg)
	tv.SetTextColor(theme.Fg)
	tv.SetTitle(" Conversation ")
	tv.SetTitleColor(theme.Title)
	return &ConversationView{TextView: tv, theme: theme}
}

// Update replaces the view's contents with records and scrolls to the newest.
func (cv *ConversationView) Update(records []store.ConversationRecord) {
	cv.Clear()
	cv.SetTitle(fmt.Sprintf(" Conversation (%d) ", len(records)))
	for _, r := range records {
		_, _ = fmt.Fprint(cv, cv.line(r))
	}
	cv.ScrollToEnd()
}

func (cv *ConversationView) line(r store.ConversationRecord) string {
	who, color := "Them", cv.theme.Received
	if r.IsSent {
		who, color = "You", cv.theme.Sent
	}
	return fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s %s[-:-:-]\n%s\n\n",
		color.String(), who, r.FormattedDate, r.Service, displayText(r.Text))
}

// SearchView is a keyword box over a result table.
type SearchView struct {
	*tview.Flex
	theme   *Theme
	input   *tview.InputField
	results *tview.Table
	data    []store.ConversationRecord
}

func NewSearchView(theme *Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.Bg)
	input.SetFieldBackgroundColor(theme.Bg)
	input.SetFieldTextColor(theme.Fg)
	input.SetLabelColor(theme.Key)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.Border)
	results.SetBackgroundColor(theme.Bg)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.Title)
	results.SetSelectedStyle(tcell.StyleDefault.Foreground(theme.CursorFg).Background(theme.CursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	return &SearchView{Flex: flex, theme: theme, input: input, results: results}
}

// SetOnQuery registers fn to run with the keyword when Enter is pressed.
func (sv *SearchView) SetOnQuery(fn func(keyword string)) {
	sv.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			fn(strings.TrimSpace(sv.input.GetText()))
		}
	})
}

// Update fills the result table.
func (sv *SearchView) Update(records []store.ConversationRecord) {
	sv.data = records
	sv.results.Clear()
	sv.results.SetTitle(fmt.Sprintf(" Results (%d) ", len(records)))

	for col, h := range []string{" DATE", " FROM", " SERVICE", " MESSAGE"} {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.HeaderFg).
			SetAttributes(tcell.AttrBold))
	}
	for i, r := range records {
		row := i + 1
		from := "Them"
		if r.IsSent {
			from = "You"
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+r.FormattedDate).SetTextColor(sv.theme.Fg))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+from).SetTextColor(sv.theme.Fg))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+r.Service).SetTextColor(sv.theme.Fg))
		sv.results.SetCell(row, 3, tview.NewTableCell(" "+displayText(r.Text)).SetExpansion(1).SetTextColor(sv.theme.Fg))
	}
	if len(records) > 0 {
		sv.results.Select(1, 0)
	}
}

// Selected returns the record under the cursor.
func (sv *SearchView) Selected() (store.ConversationRecord, bool) {
	row, _ := sv.results.GetSelection()
	if row < 1 || row > len(sv.data) {
		return store.ConversationRecord{}, false
	}
	return sv.data[row-1], true
}

func (sv *SearchView) Input() *tview.InputField { return sv.input }
func (sv *SearchView) Results() *tview.Table    { return sv.results }

// StatusBar shows per-service counts, the last run and key hints.
type StatusBar struct {
	*tview.TextView
	theme   *Theme
	summary string
	run     string
	hints   []string
	flash   string
	expires time.Time
}

func NewStatusBar(theme *Theme) *StatusBar {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)
	return &StatusBar{TextView: tv, theme: theme}
}

func (sb *StatusBar) SetSummary(counts []store.ServiceCount) {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		dir := "recv"
		if c.IsSent {
			dir = "sent"
		}
		parts = append(parts, fmt.Sprintf("%s %s %d", c.Service, dir, c.Count))
	}
	sb.summary = strings.Join(parts, ", ")
	sb.render()
}

func (sb *StatusBar) SetRun(run *store.Run) {
	sb.run = ""
	if run != nil {
		sb.run = fmt.Sprintf("%q at %s", run.Term, run.FinishedAt.Local().Format("2006-01-02 15:04"))
	}
	sb.render()
}

func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

// Flash shows msg for d.
func (sb *StatusBar) Flash(msg string, d time.Duration) {
	sb.flash = msg
	sb.expires = time.Now().Add(d)
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	_, _ = fmt.Fprint(sb, sb.text(time.Now()))
}

func (sb *StatusBar) text(now time.Time) string {
	var b strings.Builder
	b.WriteString(" [::b]imsgx[-:-:-]")
	if sb.run != "" {
		b.WriteString(" | " + tview.Escape(sb.run))
	}
	if sb.summary != "" {
		b.WriteString(" | " + sb.summary)
	}
	if len(sb.hints) > 0 {
		fmt.Fprintf(&b, " | [%s]%s[-]", sb.theme.Key.String(), strings.Join(sb.hints, " "))
	}
	if sb.flash != "" && now.Before(sb.expires) {
		fmt.Fprintf(&b, " | [%s]%s[-]", sb.theme.Flash.String(), tview.Escape(sb.flash))
	}
	return b.String()
}
