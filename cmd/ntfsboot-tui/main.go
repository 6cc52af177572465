// Command ntfsboot-tui is the interactive front end for the NTFS boot
// sector rebuild engine: an Elm-architecture device/path picker in the
// style of shubham030-recovery/cmd/recover-tui/main.go, handing off to
// internal/tui.Model once a device is chosen and the engine has run.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/shubham/ntfsboot/internal/device"
	"github.com/shubham/ntfsboot/internal/diskio"
	"github.com/shubham/ntfsboot/internal/mftscan"
	"github.com/shubham/ntfsboot/internal/rebuild"
	"github.com/shubham/ntfsboot/internal/tui"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

type state int

const (
	stateSelectSource state = iota
	stateEnterPath
	stateSelectDevice
	stateRunning
	stateApply
)

type sourceType int

const (
	sourceDevice sourceType = iota
	sourceImage
)

type sourceItem struct{ name, desc string }

func (i sourceItem) Title() string       { return i.name }
func (i sourceItem) Description() string { return i.desc }
func (i sourceItem) FilterValue() string { return i.name }

type deviceItem struct{ d device.Device }

func (i deviceItem) Title() string { return fmt.Sprintf("%s - %s", i.d.Path, i.d.Name) }
func (i deviceItem) Description() string {
	return fmt.Sprintf("%s | %s", i.d.SizeHuman, i.d.Filesystem)
}
func (i deviceItem) FilterValue() string { return i.d.Path }

type devicesLoadedMsg struct {
	devices []device.Device
	err     error
}

type rebuildCompleteMsg struct {
	result rebuild.Result
	err    error
}

type model struct {
	state state
	err   error

	source     sourceType
	sourceList list.Model

	deviceList list.Model
	devices    []device.Device

	pathInput textinput.Model
	spinner   spinner.Model

	selectedPath string
	applyModel   tui.Model
}

func initialModel() model {
	sourceItems := []list.Item{
		sourceItem{name: "Physical device", desc: "pick a connected block device"},
		sourceItem{name: "Disk image", desc: "open a .img/.dd/.raw file by path"},
	}
	sourceList := list.New(sourceItems, list.NewDefaultDelegate(), 0, 0)
	sourceList.Title = "Select recovery source"
	sourceList.SetShowStatusBar(false)
	sourceList.SetFilteringEnabled(false)

	deviceList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	deviceList.Title = "Select device"
	deviceList.SetShowStatusBar(false)

	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/disk.img"
	pathInput.Focus()
	pathInput.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return model{
		state:      stateSelectSource,
		sourceList: sourceList,
		deviceList: deviceList,
		pathInput:  pathInput,
		spinner:    s,
	}
}

func loadDevices() tea.Msg {
	devs, err := device.List()
	return devicesLoadedMsg{devices: devs, err: err}
}

func runRebuild(path string) tea.Cmd {
	return func() tea.Msg {
		disk, err := diskio.Open(path)
		if err != nil {
			return rebuildCompleteMsg{err: err}
		}

		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		cfg := rebuild.Config{
			Disk:      disk,
			Partition: mftscan.Partition{Offset: 0, Size: uint64(disk.Size())},
			UI:        quietUI{},
			Log:       logger,
		}
		result := rebuild.RebuildNTFSBoot(cfg)
		if result.Applier == nil {
			return rebuildCompleteMsg{err: fmt.Errorf("no geometry could be resolved for %s", path)}
		}
		return rebuildCompleteMsg{result: result}
	}
}

// quietUI never asks for confirmation and always accepts the first
// fully-resolved candidate, mirroring ntfsboot's headless UI adapter
// since the TUI only takes over once geometry has already been found.
type quietUI struct{}

func (quietUI) Progress(scanned, total uint64)                        {}
func (quietUI) StopRequested() bool                                   { return false }
func (quietUI) ConfirmEarlyAccept(g mftscan.EarlyAcceptGeometry) bool { return true }

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.sourceList.SetSize(msg.Width, msg.Height-4)
		m.deviceList.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case devicesLoadedMsg:
		m.devices = msg.devices
		m.err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, d := range msg.devices {
			items[i] = deviceItem{d: d}
		}
		m.deviceList.SetItems(items)
		m.state = stateSelectDevice
		return m, nil

	case rebuildCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateSelectSource
			return m, nil
		}
		m.applyModel = tui.New(msg.result.Applier)
		m.state = stateApply
		return m, m.applyModel.Init()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateActiveWidget(msg)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateSelectSource:
		if msg.String() == "enter" {
			item, ok := m.sourceList.SelectedItem().(sourceItem)
			if !ok {
				return m, nil
			}
			if item.name == "Physical device" {
				m.source = sourceDevice
				m.state = stateRunning
				return m, loadDevices
			}
			m.source = sourceImage
			m.state = stateEnterPath
			return m, nil
		}

	case stateEnterPath:
		if msg.String() == "enter" {
			m.selectedPath = m.pathInput.Value()
			m.state = stateRunning
			return m, tea.Batch(m.spinner.Tick, runRebuild(m.selectedPath))
		}

	case stateSelectDevice:
		if msg.String() == "enter" {
			item, ok := m.deviceList.SelectedItem().(deviceItem)
			if !ok {
				return m, nil
			}
			m.selectedPath = item.d.Path
			m.state = stateRunning
			return m, tea.Batch(m.spinner.Tick, runRebuild(m.selectedPath))
		}
	}

	return m.updateActiveWidget(msg)
}

func (m model) updateActiveWidget(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state {
	case stateSelectSource:
		m.sourceList, cmd = m.sourceList.Update(msg)
	case stateEnterPath:
		m.pathInput, cmd = m.pathInput.Update(msg)
	case stateSelectDevice:
		m.deviceList, cmd = m.deviceList.Update(msg)
	case stateApply:
		var tm tea.Model
		tm, cmd = m.applyModel.Update(msg)
		m.applyModel = tm.(tui.Model)
	}
	return m, cmd
}

func (m model) View() string {
	switch m.state {
	case stateSelectSource:
		return m.sourceList.View()
	case stateEnterPath:
		return titleStyle.Render("NTFS boot sector rebuild") + "\n\n" +
			"Image path:\n" + m.pathInput.View() + "\n\n" +
			helpStyle.Render("enter: continue   ctrl+c: quit")
	case stateSelectDevice:
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("error listing devices: %v", m.err))
		}
		return m.deviceList.View()
	case stateRunning:
		return fmt.Sprintf("\n  %s scanning %s for NTFS geometry...\n\n%s",
			m.spinner.View(), m.selectedPath, helpStyle.Render("ctrl+c: quit"))
	case stateApply:
		return m.applyModel.View()
	}
	return ""
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
