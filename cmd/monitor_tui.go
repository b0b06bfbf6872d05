// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/bifil/pkg/bifil"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type monitorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Messages
type monitorTickMsg time.Time
type monitorBatchMsg struct {
	events []monitorEvent
}

// TUI model
type monitorModel struct {
	runner *linkRunner

	stats         *bifil.Statistics
	eventLog      []monitorLogEntry
	maxLogEntries int

	pollEnabled bool
	wordInput   textinput.Model

	width    int
	height   int
	quitting bool
}

func initialMonitorModel(r *linkRunner, poll bool) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "DEADBEEF"
	ti.CharLimit = 8
	ti.Width = 12
	ti.Focus()

	return monitorModel{
		runner:        r,
		stats:         bifil.NewStatistics(),
		eventLog:      make([]monitorLogEntry, 0),
		maxLogEntries: 100,
		pollEnabled:   poll,
		wordInput:     ti,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		textinput.Blink,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			m.transmitWord()
			return m, nil

		case "ctrl+p":
			m.pollEnabled = !m.pollEnabled
			m.runner.init.SetControl(bifil.Control{
				Enable:      true,
				Role:        bifil.RoleInitiator,
				PollEnabled: m.pollEnabled,
			})
			if m.pollEnabled {
				m.addLogEntry("Idle polling enabled", false)
			} else {
				m.addLogEntry("Idle polling disabled", false)
			}
			return m, nil

		case "ctrl+r":
			m.runner.init.SetControl(bifil.Control{SoftReset: true})
			m.runner.resp.SetControl(bifil.Control{SoftReset: true})
			m.runner.init.SetControl(bifil.Control{
				Enable:      true,
				Role:        bifil.RoleInitiator,
				PollEnabled: m.pollEnabled,
			})
			m.runner.resp.SetControl(bifil.Control{Enable: true, Role: bifil.RoleResponder})
			m.stats.Reset()
			m.addLogEntry("Soft reset", false)
			return m, nil

		case "ctrl+e":
			m.runner.init.SetControl(bifil.Control{
				Enable:      true,
				Role:        bifil.RoleInitiator,
				PollEnabled: m.pollEnabled,
				ClearErrors: true,
			})
			m.runner.resp.SetControl(bifil.Control{
				Enable:      true,
				Role:        bifil.RoleResponder,
				ClearErrors: true,
			})
			m.addLogEntry("Error flags cleared", false)
			return m, nil

		case "ctrl+f":
			m.runner.injectFault()
			m.addLogEntry("Fault injected: initiator frozen mid-slot", true)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.stats.CalculateRates()
		return m, monitorTickCmd()

	case monitorBatchMsg:
		for _, ev := range msg.events {
			m.processEvent(ev)
		}
	}

	var cmd tea.Cmd
	m.wordInput, cmd = m.wordInput.Update(msg)
	return m, cmd
}

// transmitWord parses the input field as hex and queues it on the initiator
func (m *monitorModel) transmitWord() {
	text := strings.TrimSpace(m.wordInput.Value())
	if text == "" {
		return
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(text), "0x"), 16, 32)
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Invalid hex word %q", text), true)
		return
	}

	if !m.runner.init.PushTx(bifil.Word(v)) {
		m.addLogEntry(fmt.Sprintf("TX rejected: queue full (word 0x%08X)", v), true)
		return
	}

	m.addLogEntry(fmt.Sprintf("Queued word 0x%08X", v), false)
	m.wordInput.SetValue("")
}

func (m *monitorModel) processEvent(ev monitorEvent) {
	switch {
	case ev.exchange != nil:
		m.stats.Update(*ev.exchange)
		x := ev.exchange
		if x.Aborted && x.Desync {
			m.addLogEntry("DESYNC: slot aborted", true)
		} else if x.Aborted {
			m.addLogEntry("Slot aborted", true)
		} else if x.Overflow {
			m.addLogEntry(fmt.Sprintf("Received %s dropped, queue full", x.Received), true)
		}

	case ev.delivered != nil:
		m.addLogEntry(fmt.Sprintf("Delivered to responder: 0x%08X", uint32(*ev.delivered)), false)

	case ev.echoed != nil:
		m.addLogEntry(fmt.Sprintf("Back at initiator: 0x%08X", uint32(*ev.echoed)), false)
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := monitorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// statusLine renders one endpoint's status
func statusLine(label string, st bifil.Status, labelStyle, valueStyle, errStyle lipgloss.Style) string {
	up := "down"
	if st.LinkUp {
		up = "up"
	}
	peer := "absent"
	if st.PeerPresent {
		peer = "present"
	}

	line := fmt.Sprintf("%s %s   %s %s   %s %d   %s %d",
		labelStyle.Render(label+":"), valueStyle.Render(up),
		labelStyle.Render("peer:"), valueStyle.Render(peer),
		labelStyle.Render("tx space:"), st.TxSpace,
		labelStyle.Render("rx count:"), st.RxCount,
	)

	var flags []string
	if st.RxOverflow {
		flags = append(flags, "RX-OVF")
	}
	if st.TxOverflow {
		flags = append(flags, "TX-OVF")
	}
	if st.Desync {
		flags = append(flags, "DESYNC")
	}
	if len(flags) > 0 {
		line += "   " + errStyle.Render(strings.Join(flags, " "))
	}
	return line
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("BIFIL - LINK MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(
		"enter: transmit | ctrl+p: poll | ctrl+r: reset | ctrl+e: clear errors | ctrl+f: fault | q: quit"))
	s.WriteString("\n\n")

	// Endpoint status
	statusContent := strings.Builder{}
	statusContent.WriteString(statusLine("initiator", m.runner.init.Status(), labelStyle, valueStyle, errorStyle))
	statusContent.WriteString("\n")
	statusContent.WriteString(statusLine("responder", m.runner.resp.Status(), labelStyle, valueStyle, errorStyle))
	s.WriteString(boxStyle.Render(statusContent.String()))
	s.WriteString("\n\n")

	// Statistics
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Exchanges:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalExchanges)),
		labelStyle.Render("Words:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.ValidWords)),
		labelStyle.Render("Polls:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.PollSlots)),
	))

	if m.stats.RxOverflows > 0 || m.stats.TxOverflows > 0 || m.stats.Desyncs > 0 || m.stats.Aborted > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Overflows:"), errorStyle.Render(fmt.Sprintf("rx %d / tx %d", m.stats.RxOverflows, m.stats.TxOverflows)),
			labelStyle.Render("Desyncs:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Desyncs)),
			labelStyle.Render("Aborted:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Aborted)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Exchange Rate:"), valueStyle.Render(fmt.Sprintf("%.1f /s", m.stats.ExchangeRate)),
		labelStyle.Render("Word Rate:"), valueStyle.Render(fmt.Sprintf("%.1f /s", m.stats.WordRate)),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Transmit input
	s.WriteString(labelStyle.Render("Transmit word (hex):"))
	s.WriteString(" " + m.wordInput.View())
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 16
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
