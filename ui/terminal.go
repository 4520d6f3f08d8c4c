package ui

import (
	"c2c-client/contract"
	"c2c-client/domain"
	"c2c-client/domain/event"
	"c2c-client/observability"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const timeLayout = "15:04"

var (
	selfStyle    = color.New(color.FgCyan, color.OpBold)
	otherStyle   = color.New(color.FgMagenta, color.OpBold)
	systemStyle  = color.New(color.FgGray)
	infoStyle    = color.New(color.FgGreen)
	warningStyle = color.New(color.FgYellow)
	dangerStyle  = color.New(color.FgRed, color.OpBold)
)

// Terminal renders a chat session as plain lines on a writer.
// It implements contract.Renderer and the input worker's console.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool

	status      domain.ConnectionStatus
	memberCount int

	home     chan struct{}
	homeOnce sync.Once
}

var _ contract.Renderer = (*Terminal)(nil)

func NewTerminal(out io.Writer, colours bool) *Terminal {
	return &Terminal{
		out:     out,
		colours: colours,
		status:  domain.StatusDisconnected,
		home:    make(chan struct{}),
	}
}

// Home is closed once the session asks to go back to the home screen.
func (t *Terminal) Home() <-chan struct{} {
	return t.home
}

func (t *Terminal) DisplayMessage(view contract.MessageView) {
	style := otherStyle
	if view.Group.IsSelf {
		style = selfStyle
	}
	if view.NewGroup {
		header := fmt.Sprintf("%s  %s", view.Group.Sender, view.Group.LastTimestamp.Format(timeLayout))
		t.println(t.paint(style, header))
	}
	t.println("  " + view.Text)
}

func (t *Terminal) DisplaySystemNotice(text string) {
	t.println(t.paint(systemStyle, "* "+text))
}

func (t *Terminal) UpdateConnectionStatusIndicator(status domain.ConnectionStatus) {
	t.mu.Lock()
	changed := t.status != status
	t.status = status
	t.mu.Unlock()
	if !changed {
		return
	}

	style := warningStyle
	switch status {
	case domain.StatusConnected:
		style = infoStyle
	case domain.StatusDisconnected:
		style = dangerStyle
	}
	t.println(t.paint(style, "["+string(status)+"]"))
}

func (t *Terminal) ShowTransientNotice(text string, severity event.NoticeSeverity) {
	style := infoStyle
	switch severity {
	case event.SeverityWarning:
		style = warningStyle
	case event.SeverityDanger:
		style = dangerStyle
	}
	t.println(t.paint(style, "! "+text))
}

func (t *Terminal) ShowPresenceWarning(active bool) {
	if active {
		t.println(t.paint(warningStyle, "You are alone in this room. Share the invite link with /invite."))
	}
}

func (t *Terminal) UpdateMemberCount(count int) {
	t.mu.Lock()
	t.memberCount = count
	t.mu.Unlock()
	t.println(t.paint(systemStyle, fmt.Sprintf("(%d online)", count)))
}

func (t *Terminal) RedirectHome() {
	t.homeOnce.Do(func() {
		t.println(t.paint(systemStyle, "Back to home."))
		close(t.home)
	})
}

func (t *Terminal) MemberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.memberCount
}

func (t *Terminal) PrintMembers(members []string) {
	rows := lo.Map(members, func(m string, i int) []string {
		return []string{strconv.Itoa(i + 1), m}
	})
	t.table([]string{"#", "Member"}, rows)
}

func (t *Terminal) PrintInvite(link string) {
	t.println("Invite link: " + link)
}

func (t *Terminal) PrintStats(stats observability.MonitoringStats) {
	rows := lo.Map(stats.Codes(), func(code event.DiagnosticCode, _ int) []string {
		return []string{string(code), strconv.FormatUint(stats.Counts[code], 10)}
	})
	rows = append(rows,
		[]string{"total", strconv.FormatUint(stats.TotalReported, 10)},
		[]string{"goroutines", strconv.Itoa(stats.NumGoroutine)},
		[]string{"alloc_mb", strconv.FormatUint(stats.AllocMemMb, 10)},
		[]string{"cpu_percent", strconv.FormatFloat(stats.Process.CPUPercent, 'f', 1, 64)},
		[]string{"rss_mb", strconv.FormatUint(stats.Process.RSSBytes/1024/1024, 10)},
		[]string{"status", stats.Process.Status},
	)
	t.table([]string{"Metric", "Value"}, rows)
}

func (t *Terminal) PrintHelp(commands []string) {
	t.println("Commands: " + strings.Join(commands, " "))
}

func (t *Terminal) table(header []string, rows [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	table := tablewriter.NewWriter(t.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
}

func (t *Terminal) paint(style color.Style, text string) string {
	if !t.colours {
		return text
	}
	return style.Render(text)
}

func (t *Terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintln(t.out, line)
}
