package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sysmond/internal/collector"
	"sysmond/internal/model"
)

// Model renders aggregate snapshots polled from the collector.
type Model struct {
	agg      *collector.Aggregator
	interval time.Duration
	latest   model.MetricsSnapshot
	err      error
	width    int
	height   int
}

func New(agg *collector.Aggregator, interval time.Duration) *Model {
	return &Model{
		agg:      agg,
		interval: interval,
		width:    120,
		height:   40,
	}
}

// Messages
type (
	tickMsg   struct{}
	sampleMsg model.MetricsSnapshot
	errMsg    struct{ err error }
)

// sampleCmd collects one aggregate off the UI goroutine; All blocks for the
// CPU window, which is fine inside a tea.Cmd.
func (m *Model) sampleCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.agg.All(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return sampleMsg(snap)
	}
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) Init() tea.Cmd { return m.sampleCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case sampleMsg:
		m.latest = model.MetricsSnapshot(msg)
		m.err = nil
		return m, m.tickCmd()
	case errMsg:
		m.err = msg.err
		return m, m.tickCmd()
	case tickMsg:
		return m, m.sampleCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render("sysmond") + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"))
	if m.err != nil {
		header += "  " + errStyle.Render(m.err.Error())
	}

	cpuCard := card("CPU",
		fmt.Sprintf("%s  load %.2f %.2f %.2f",
			gaugeBar(s.CPU.Percent, 28),
			loadAt(s.CPU.LoadAvg, 0), loadAt(s.CPU.LoadAvg, 1), loadAt(s.CPU.LoadAvg, 2)))

	memCard := card("Memory",
		fmt.Sprintf("%s  %.1f/%.1f GB | Swap %3.0f%%",
			gaugeBar(s.Memory.RAM.Percent, 28),
			s.Memory.RAM.UsedGB, s.Memory.RAM.TotalGB, s.Memory.Swap.Percent))

	diskCard := card("Disk "+s.Disk.Path,
		fmt.Sprintf("%s  %.1f/%.1f GB free %.1f",
			gaugeBar(s.Disk.Percent, 28),
			s.Disk.UsedGB, s.Disk.TotalGB, s.Disk.FreeGB))

	netCard := card("Network (since boot)",
		fmt.Sprintf("TX %.1f MB  RX %.1f MB  err in/out %d/%d",
			s.Network.BytesSentMB, s.Network.BytesRecvMB,
			s.Network.ErrorsIn, s.Network.ErrorsOut))

	sysCard := card("Host",
		fmt.Sprintf("%s  %s %s  up %s  %d procs",
			s.System.Hostname, s.System.OS, s.System.OSRelease,
			uptimeString(s.System.UptimeSeconds), s.System.ProcessCount))

	topTable := card("Top CPU", renderTable(s.TopProcesses, 10))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, diskCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, netCard, sysCard)

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, topTable,
		subtleStyle.Render("q to quit"))
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	return cardStyle.Render(titleStr + "\n" + body)
}

func renderTable(rows []model.ProcessInfo, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-7s %-7s %-7s %s\n", "name", "pid", "cpu", "mem", "status")
	for i := 0; i < min(limit, len(rows)); i++ {
		r := rows[i]
		fmt.Fprintf(&b, "%-20s %-7d %6.1f%% %6.1f%% %s\n",
			truncate(r.Name, 20), r.PID, r.CPUPercent, r.MemoryPercent, r.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func loadAt(avg []float64, i int) float64 {
	if i >= len(avg) {
		return 0
	}
	return avg[i]
}

func uptimeString(secs int64) string {
	d := time.Duration(secs) * time.Second
	days := int(d.Hours()) / 24
	if days > 0 {
		return fmt.Sprintf("%dd%dh", days, int(d.Hours())%24)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// RunWatch starts the Bubble Tea dashboard.
func RunWatch(agg *collector.Aggregator, interval time.Duration) error {
	prog := tea.NewProgram(New(agg, interval), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
