package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/poolhedge/internal/control"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // 绿色
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // 红色
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

const pollEvery = 2 * time.Second

// statusAPI 便于测试替换
type statusAPI interface {
	status(ctx context.Context) (*control.StatusResponse, error)
	toggle(ctx context.Context, start bool) (*control.StatusResponse, error)
	run(ctx context.Context) (bool, error)
}

type model struct {
	api     statusAPI
	target  string
	status  *control.StatusResponse
	updated time.Time
	notice  string
	err     error
}

type tickMsg time.Time

type statusMsg struct {
	status *control.StatusResponse
	at     time.Time
}

type noticeMsg string

type errMsg struct{ err error }

func initialModel(api statusAPI, target string) model {
	return model{api: api, target: target}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(fetchCmd(m.api), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			m.notice = "start..."
			return m, toggleCmd(m.api, true)
		case "x":
			m.notice = "stop..."
			return m, toggleCmd(m.api, false)
		case "r":
			m.notice = "run..."
			return m, runCmd(m.api)
		}

	case tickMsg:
		return m, tea.Batch(fetchCmd(m.api), tickCmd())

	case statusMsg:
		m.status = msg.status
		m.updated = msg.at
		m.err = nil
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, fetchCmd(m.api)

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	state := dimStyle.Render("连接中")
	mode := ""
	if m.status != nil {
		if m.status.Running {
			state = runningStyle.Render("RUNNING")
		} else {
			state = stoppedStyle.Render("STOPPED")
		}
		if m.status.DryRun {
			mode = " | dry-run"
		}
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("poolhedge @ %s%s", m.target, mode)))
	s.WriteString(" ")
	s.WriteString(state)
	s.WriteString("\n\n")

	if m.status != nil {
		s.WriteString(renderPools(m.status))
		s.WriteString("\n")
		s.WriteString(dimStyle.Render(fmt.Sprintf("更新于 %s", m.updated.Format("15:04:05"))))
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString(stoppedStyle.Render(fmt.Sprintf("错误: %v", m.err)))
		s.WriteString("\n")
	}
	if m.notice != "" {
		s.WriteString(m.notice)
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(dimStyle.Render("s 开启 | x 停止 | r 立即执行一轮 | q 退出"))
	return s.String()
}

func renderPools(st *control.StatusResponse) string {
	if len(st.Pools) == 0 {
		return borderStyle.Render("没有池子")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%-10s %-10s %24s %24s %s", "POOL", "SYMBOL", "ACC BASE", "ACC QUOTE", "THRESHOLDS")))
	for _, p := range st.Pools {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%-10s %-10s %24s %24s [%s, %s]", p.Name, p.Symbol, p.AccBase, p.AccQuote, p.BaseThreshold, p.QuoteThreshold)
		if p.Baseline == "" {
			b.WriteString(dimStyle.Render("  (无基线)"))
		}
	}
	return borderStyle.Render(b.String())
}

// Commands

func tickCmd() tea.Cmd {
	return tea.Tick(pollEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchCmd(api statusAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollEvery)
		defer cancel()
		st, err := api.status(ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg{status: st, at: time.Now()}
	}
}

func toggleCmd(api statusAPI, start bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollEvery)
		defer cancel()
		st, err := api.toggle(ctx, start)
		if err != nil {
			return errMsg{err}
		}
		if st.Running {
			return noticeMsg("对冲已开启")
		}
		return noticeMsg("对冲已停止")
	}
}

func runCmd(api statusAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollEvery)
		defer cancel()
		queued, err := api.run(ctx)
		if err != nil {
			return errMsg{err}
		}
		if !queued {
			return noticeMsg("已有一轮在排队")
		}
		return noticeMsg("已请求执行一轮")
	}
}
