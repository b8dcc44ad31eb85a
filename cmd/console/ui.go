package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/novel-engine/internal/handlers"
	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

const Title = "NOVEL ENGINE"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	api           *APIClient
	slot          *handlers.SlotResponse
	sidebar       *Sidebar
	sceneViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	notice        string
	loading       bool

	// Slot selection state
	showSlotModal bool
	saves         map[int]*state.Save
	selectedSlot  int
	loadingSaves  bool

	selectedChoice int

	showQuitModal bool

	progressTick int
}

type savesLoadedMsg struct {
	saves []*state.Save
	err   error
}

type slotLoadedMsg struct {
	slot *handlers.SlotResponse
	err  error
}

type outcomeMsg struct {
	outcome *session.Outcome
	err     error
}

type sidebarMsg struct {
	sidebar *Sidebar
	err     error
}

type clipboardMsg struct {
	notice string
	err    error
}

type progressTickMsg struct{}

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narrationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Italic(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	selectedChoiceStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("39")).
				Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, api *APIClient) ConsoleUI {
	sceneVp := viewport.New(50, 20)
	sceneVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		api:           api,
		sceneViewport: sceneVp,
		metaViewport:  metaVp,
		showSlotModal: true,
		loadingSaves:  true,
		selectedSlot:  1,
	}
}

// renderScene formats a scene's dialogue for the given width.
func renderScene(scene *handlers.SceneResponse, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render(fmt.Sprintf("Chapter %d", scene.Chapter)))
	if scene.Title != "" {
		content.WriteString(titleStyle.Render(" · " + scene.Title))
	}
	content.WriteString("\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(width-6, 1))) + "\n\n")

	for _, line := range scene.Dialogue {
		if line.Speaker == "" {
			content.WriteString(narrationStyle.Render(wordwrap.String(line.Text, width)) + "\n\n")
			continue
		}
		name := line.SpeakerName
		if name == "" {
			name = story.DisplayName(line.Speaker)
		}
		prefix := name + ": "
		wrapped := wordwrap.String(line.Text, max(width-len(prefix), 10))
		content.WriteString(speakerStyle.Render(prefix) + wrapped + "\n\n")
	}
	return content.String()
}

// renderEnding formats the ending screen.
func renderEnding(ending *story.Ending, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("THE END") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(width-6, 1))) + "\n\n")
	if ending == nil {
		content.WriteString("The story is over.\n")
		return content.String()
	}
	content.WriteString(speakerStyle.Render(ending.Title))
	if ending.Kind != "" {
		content.WriteString(promptStyle.Render(" (" + ending.Kind + " ending)"))
	}
	content.WriteString("\n\n")
	if ending.Description != "" {
		content.WriteString(wordwrap.String(ending.Description, width) + "\n")
	}
	return content.String()
}

// renderChoices lists choices numbered from 1 with the selection highlighted.
func renderChoices(choices []story.Choice, selected int) string {
	var content strings.Builder
	for i, c := range choices {
		label := c.Text
		if label == "" {
			label = story.DisplayName(c.ID)
		}
		line := fmt.Sprintf("%d. %s", i+1, label)
		if i == selected {
			content.WriteString(selectedChoiceStyle.Render("▶ " + line))
		} else {
			content.WriteString(choiceStyle.Render("  " + line))
		}
		content.WriteString("\n")
	}
	return content.String()
}

// choiceForKey maps a digit key to a zero-based choice index.
func choiceForKey(key string, count int) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	idx := int(key[0] - '1')
	if idx >= count {
		return 0, false
	}
	return idx, true
}

func writeMetadata(slotNum int, gs *state.GameState, sb *Sidebar) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME STATE") + "\n\n")

	content.WriteString(fmt.Sprintf("Slot: %d\n", slotNum))
	if gs != nil {
		content.WriteString(fmt.Sprintf("Chapter: %d\n\n", gs.CurrentChapter))

		content.WriteString("Stats:\n")
		if len(gs.Stats) == 0 {
			content.WriteString("None yet\n")
		}
		for _, name := range sortedKeys(gs.Stats) {
			content.WriteString(fmt.Sprintf("• %s: %d\n", story.DisplayName(name), gs.Stats[name]))
		}
		content.WriteString("\n")
	}

	if sb != nil {
		content.WriteString("Relationships:\n")
		if len(sb.Relationships) == 0 {
			content.WriteString("No one yet\n")
		}
		for _, st := range sb.Relationships {
			content.WriteString(fmt.Sprintf("• %s: %s (%d)\n", st.Name, st.Tier, st.Points))
		}
		content.WriteString("\n")

		content.WriteString("Inventory:\n")
		if len(sb.Inventory) == 0 {
			content.WriteString("Empty\n")
		}
		for _, item := range sb.Inventory {
			name := item.Name
			if name == "" {
				name = story.DisplayName(item.ItemID)
			}
			content.WriteString(fmt.Sprintf("• %s x%d\n", name, item.Qty))
		}
		content.WriteString("\n")

		content.WriteString("Achievements:\n")
		for _, a := range sb.Achievements {
			mark := "·"
			if a.Unlocked {
				mark = "★"
			}
			content.WriteString(fmt.Sprintf("%s %s\n", mark, a.Title))
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• ↑/↓ Enter: Choose\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• Ctrl+S: Copy save\n")
	content.WriteString("• Ctrl+L: Paste save\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m ConsoleUI) choices() []story.Choice {
	if m.slot == nil || m.slot.Scene == nil {
		return nil
	}
	return m.slot.Scene.Choices
}

// writeSceneContent rebuilds the scene panel for the current viewport width.
func (m *ConsoleUI) writeSceneContent() {
	width := m.sceneViewport.Width - 6 // Account for left(3) + right(3) padding
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	switch {
	case m.slot == nil:
		content.WriteString(titleStyle.Render(Title) + "\n")
	case m.slot.State != nil && m.slot.State.Ended:
		content.WriteString(renderEnding(m.slot.Ending, width))
	case m.slot.Scene != nil:
		content.WriteString(renderScene(m.slot.Scene, width))
	}

	if m.loading {
		content.WriteString(m.renderProgressBar() + "\n")
	}

	m.sceneViewport.SetContent(content.String())
	m.sceneViewport.GotoTop()
}

func (m *ConsoleUI) resize() {
	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6

	choiceLines := len(m.choices()) + 3
	m.sceneViewport.Width = sceneWidth - 2
	m.sceneViewport.Height = max(m.height-choiceLines-5, 3)
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadSaves()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	if m.showSlotModal {
		return m.updateSlotModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.writeSceneContent()
		m.metaViewport.SetContent(writeMetadata(m.selectedSlot, m.stateOrNil(), m.sidebar))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlS:
			return m, m.exportToClipboard()
		case tea.KeyCtrlL:
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.importFromClipboard(), progressTick())
		case tea.KeyUp:
			if m.selectedChoice > 0 {
				m.selectedChoice--
			}
			return m, nil
		case tea.KeyDown:
			if m.selectedChoice < len(m.choices())-1 {
				m.selectedChoice++
			}
			return m, nil
		case tea.KeyEnter:
			return m.submitChoice(m.selectedChoice)
		}
		if idx, ok := choiceForKey(msg.String(), len(m.choices())); ok {
			return m.submitChoice(idx)
		}

	case slotLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.slot = msg.slot
		m.selectedChoice = 0
		m.resize()
		m.writeSceneContent()
		m.metaViewport.SetContent(writeMetadata(m.selectedSlot, m.stateOrNil(), m.sidebar))
		return m, m.refreshSidebar()

	case outcomeMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			m.writeSceneContent()
			return m, nil
		}
		m.err = nil
		m.notice = ""
		if len(msg.outcome.NewAchievements) > 0 {
			m.notice = "Achievement unlocked: " + strings.Join(msg.outcome.NewAchievements, ", ")
		}
		return m, m.reloadSlot()

	case sidebarMsg:
		if msg.err == nil {
			m.sidebar = msg.sidebar
			m.metaViewport.SetContent(writeMetadata(m.selectedSlot, m.stateOrNil(), m.sidebar))
		}

	case clipboardMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.notice = msg.notice
		if m.loading {
			return m, m.reloadSlot()
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeSceneContent()
			return m, progressTick()
		}
	}

	m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) stateOrNil() *state.GameState {
	if m.slot == nil {
		return nil
	}
	return m.slot.State
}

func (m ConsoleUI) submitChoice(idx int) (tea.Model, tea.Cmd) {
	choices := m.choices()
	if m.loading || idx < 0 || idx >= len(choices) {
		return m, nil
	}
	m.loading = true
	m.progressTick = 0
	m.selectedChoice = idx
	m.writeSceneContent()
	return m, tea.Batch(m.sendChoice(choices[idx].ID), progressTick())
}

func (m ConsoleUI) sendChoice(choiceID string) tea.Cmd {
	slot := m.selectedSlot
	return func() tea.Msg {
		out, err := m.api.choose(slot, choiceID)
		return outcomeMsg{out, err}
	}
}

func (m ConsoleUI) reloadSlot() tea.Cmd {
	slot := m.selectedSlot
	return func() tea.Msg {
		resp, err := m.api.getSlot(slot)
		return slotLoadedMsg{resp, err}
	}
}

func (m ConsoleUI) refreshSidebar() tea.Cmd {
	slot := m.selectedSlot
	return func() tea.Msg {
		sb, err := m.api.sidebar(slot)
		return sidebarMsg{sb, err}
	}
}

func (m ConsoleUI) loadSaves() tea.Cmd {
	return func() tea.Msg {
		saves, err := m.api.listSaves()
		return savesLoadedMsg{saves, err}
	}
}

func (m ConsoleUI) openSlot(slot int, fresh bool) tea.Cmd {
	return func() tea.Msg {
		if fresh {
			resp, err := m.api.newGame(slot)
			return slotLoadedMsg{resp, err}
		}
		resp, err := m.api.openSlot(slot)
		return slotLoadedMsg{resp, err}
	}
}

func (m ConsoleUI) exportToClipboard() tea.Cmd {
	slot := m.selectedSlot
	return func() tea.Msg {
		payload, err := m.api.exportSlot(slot)
		if err != nil {
			return clipboardMsg{err: err}
		}
		if err := clipboard.WriteAll(payload); err != nil {
			return clipboardMsg{err: fmt.Errorf("failed to write clipboard: %w", err)}
		}
		return clipboardMsg{notice: fmt.Sprintf("Slot %d copied to clipboard", slot)}
	}
}

func (m ConsoleUI) importFromClipboard() tea.Cmd {
	slot := m.selectedSlot
	return func() tea.Msg {
		payload, err := clipboard.ReadAll()
		if err != nil {
			return clipboardMsg{err: fmt.Errorf("failed to read clipboard: %w", err)}
		}
		if err := m.api.importSlot(slot, payload); err != nil {
			return clipboardMsg{err: err}
		}
		return clipboardMsg{notice: fmt.Sprintf("Save pasted into slot %d", slot)}
	}
}

func (m ConsoleUI) updateSlotModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case savesLoadedMsg:
		m.loadingSaves = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.saves = make(map[int]*state.Save, len(msg.saves))
		for _, s := range msg.saves {
			m.saves[s.Slot] = s
		}

	case slotLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.slot = msg.slot
		m.showSlotModal = false
		m.ready = true
		m.selectedChoice = 0
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.writeSceneContent()
		m.metaViewport.SetContent(writeMetadata(m.selectedSlot, m.stateOrNil(), m.sidebar))
		return m, m.refreshSidebar()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingSaves || m.loading {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selectedSlot > 1 {
				m.selectedSlot--
			}
		case tea.KeyDown:
			if m.selectedSlot < m.config.SaveSlots {
				m.selectedSlot++
			}
		case tea.KeyEnter:
			m.err = nil
			m.loading = true
			return m, m.openSlot(m.selectedSlot, false)
		default:
			if msg.String() == "n" {
				m.err = nil
				m.loading = true
				return m, m.openSlot(m.selectedSlot, true)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved after every choice.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

// slotLabel summarizes a save for the slot picker.
func slotLabel(slot int, save *state.Save) string {
	if save == nil {
		return fmt.Sprintf("Slot %d: empty", slot)
	}
	return fmt.Sprintf("Slot %d: chapter %d, %s (%s)", slot, save.Chapter, save.SceneID, save.UpdatedAt.Local().Format("Jan 2 15:04"))
}

func (m ConsoleUI) renderSlotModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingSaves:
		content.WriteString(modalTitleStyle.Render("Loading Saves..."))
		content.WriteString("\n\n")
		content.WriteString(noticeStyle.Render("Please wait while we fetch your save slots..."))
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Opening Slot..."))
		content.WriteString("\n\n")
		content.WriteString(noticeStyle.Render("Setting the scene..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Save Slot"))
		content.WriteString("\n\n")

		for slot := 1; slot <= m.config.SaveSlots; slot++ {
			label := slotLabel(slot, m.saves[slot])
			if slot == m.selectedSlot {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}

		if m.err != nil {
			content.WriteString("\n")
			content.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("↑/↓ to navigate, Enter to continue, N for a new game, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(70).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showSlotModal {
		return m.renderSlotModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6

	status := ""
	switch {
	case m.err != nil:
		status = errorStyle.Render("Error: " + m.err.Error())
	case m.notice != "":
		status = noticeStyle.Render(m.notice)
	}

	scenePanel := scenePanelStyle.Width(sceneWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.sceneViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(sceneWidth-4, 1))),
			renderChoices(m.choices(), m.selectedChoice),
			status,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, scenePanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.sceneViewport.Width - 6
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
