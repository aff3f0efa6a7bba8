package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/fts/internal/queue"
	"github.com/desertwitch/fts/internal/scan"
	"github.com/dustin/go-humanize"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// ScanProgressMsg is a [tea.Msg] containing [scan.Progress] information.
type ScanProgressMsg struct {
	t    time.Time
	data scan.Progress
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler
	scanner   progressSource

	fullWidthWithBorders  int
	splitWidthWithBorders int

	scanData scan.Progress

	hashProgress progress.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, scanner progressSource, cancel context.CancelFunc) TeaModel {
	hashProgress := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(80),
	)

	logsViewport := viewport.New(80, 20)

	return TeaModel{
		uiHandler:    uiHandler,
		scanner:      scanner,
		hashProgress: hashProgress,
		scanData:     scan.Progress{},
		logsViewport: logsViewport,
		logs:         make([]string, 0, 100),
		cancel:       cancel,
		ready:        false,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	m.uiHandler.Initialized.Store(true)

	return tea.Batch(
		tea.EnterAltScreen,
		updateScanProgress(m.scanner),
	)
}

// updateScanProgress produces a [tea.Cmd] for later scheduling in a
// [tea.Program]. When executed, a [ScanProgressMsg] with the scanner's
// [scan.Progress] is returned.
func updateScanProgress(s progressSource) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		return ScanProgressMsg{
			t:    t,
			data: s.Progress(),
		}
	})
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.splitWidthWithBorders = (m.width / 2) - 2

		// Progress bars should match the content width.
		m.hashProgress.Width = m.splitWidthWithBorders

		// We want upper panels to take about 40% of the height.
		upperHeight := m.height * 2 / 5
		lowerHeight := m.height - upperHeight

		// Viewport height: lower section minus borders and title.
		viewportHeight := lowerHeight - 3

		// Set viewport width to full width minus borders.
		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = viewportHeight

		// Update viewport content with current logs.
		if len(m.logs) > 0 {
			logs := lipgloss.NewStyle().
				Width(m.logsViewport.Width).
				Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

			m.logsViewport.SetContent(logs)
			m.logsViewport.GotoBottom()
		}

		m.ready = true

	case ScanProgressMsg:
		m.scanData = msg.data

		cmds = append(cmds,
			m.hashProgress.SetPercent(m.scanData.Hashing.ProgressPct/100),
		)

		// Queue the next update.
		cmds = append(cmds, updateScanProgress(m.scanner))

	case LogMsg:
		logMsg := string(msg)

		if len(m.logs) >= 100 {
			m.logs = m.logs[1:]
		}

		m.logs = append(m.logs, logMsg)

		logs := lipgloss.NewStyle().
			Width(m.logsViewport.Width).
			Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

		m.logsViewport.SetContent(logs)
		m.logsViewport.GotoBottom()

	case progress.FrameMsg:
		updatedHash, cmd := m.hashProgress.Update(msg)
		if progressModel, ok := updatedHash.(progress.Model); ok {
			m.hashProgress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	// Handle viewport updates.
	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	var s strings.Builder

	walkView := m.formatWalkView(m.scanData)
	hashView := m.formatHashView("Hashing", m.hashProgress.View(), m.scanData.Hashing)

	progressSection := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(m.splitWidthWithBorders).Render(walkView),
		borderStyle.Width(m.splitWidthWithBorders).Render(hashView),
	)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("q: quit gui • ctrl+c: quit program")

	s.WriteString(lipgloss.JoinVertical(
		lipgloss.Left,
		progressSection,
		logsSection,
		helpSection,
	))

	return s.String()
}

// formatWalkView is a helper function for rendering the walk panel.
func (m TeaModel) formatWalkView(data scan.Progress) string {
	stage := data.Stage
	if stage == "" {
		stage = scan.StageIdle
	}

	details := fmt.Sprintf(
		"Stage: %s\n"+
			"Found: %d files, %d dirs, %d other\n"+
			"Failed: %d\n"+
			"Volume: %s\n",
		stage,
		data.Files,
		data.Dirs,
		data.Others,
		data.Failed,
		humanize.Bytes(uint64(data.Bytes)), //nolint:gosec
	)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render("Walk"),
		"", // Empty line for spacing.
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	)

	return content
}

// formatHashView is a helper function for rendering the hashing panel.
func (m TeaModel) formatHashView(title string, progressBar string, progress queue.Progress) string {
	var timeLeft time.Duration
	var timeLeftMin float64

	if !progress.ETA.IsZero() {
		timeLeft = time.Until(progress.ETA)
		timeLeftMin = float64(timeLeft.Minutes())
	}

	transferSpeed := humanize.Bytes(uint64(progress.BytesPerSec)) + "/s"

	processedData := humanize.Bytes(progress.ProcessedBytes)
	expectedData := humanize.Bytes(progress.ExpectedBytes)

	var details string
	if !progress.HasFinished {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%d/%d)\n"+
				"Items: InProgress=%d, Success=%d, Skipped=%d\n"+
				"Data: %s of %s\n"+
				"Time: Started=%v, ETA=%v (%.1f%s left)\n"+
				"Speed: %s\n",
			progress.ProgressPct,
			progress.ProcessedItems,
			progress.TotalItems,
			progress.InProgressItems,
			progress.SuccessItems,
			progress.SkippedItems,
			processedData,
			expectedData,
			progress.StartTime.Format("15:04:05"),
			progress.ETA.Format("15:04:05"),
			timeLeftMin, "min",
			transferSpeed,
		)
	} else {
		details = fmt.Sprintf(
			"Progress: %.2f%% (%d/%d)\n"+
				"Items: InProgress=%d, Success=%d, Skipped=%d\n"+
				"Data: %s of %s\n"+
				"Time: Started=%v, Finished=%v\n\n",
			progress.ProgressPct,
			progress.ProcessedItems,
			progress.TotalItems,
			progress.InProgressItems,
			progress.SuccessItems,
			progress.SkippedItems,
			processedData,
			expectedData,
			progress.StartTime.Format("15:04:05"),
			progress.FinishTime.Format("15:04:05"),
		)
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render(title),
		"", // Empty line for spacing.
		progressBar,
		"", // Empty line for spacing.
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	)

	return content
}
