// Command monitor is a terminal single-step debugger over a cpu.CPU and
// a memory.Bus, showing registers, flags, and a disassembly window,
// advanced one instruction at a time with the space bar. Grounded on
// hejops-gone/cpu/debugger.go's bubbletea model shape (Init/Update/View
// over an embedded CPU, space to tick, q to quit), rebuilt against this
// project's own cpu/memory/disasm packages and flag-driven ROM loading
// instead of a hardcoded program.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gregbell/lib6502-sub001/cpu"
	"github.com/gregbell/lib6502-sub001/disasm"
	"github.com/gregbell/lib6502-sub001/memory"
)

func main() {
	romPath := flag.String("rom", "", "binary image to load")
	loadAddr := flag.Uint("load", 0x0200, "address to load the image at")
	startAddr := flag.Uint("start", 0, "PC to start at (default: load address)")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("usage: monitor -rom <file> [-load addr] [-start addr]")
	}
	img, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("reading %s: %v", *romPath, err)
	}

	bus := memory.NewFlatBus()
	bus.LoadAt(uint16(*loadAddr), img)

	pc := uint16(*loadAddr)
	if *startAddr != 0 {
		pc = uint16(*startAddr)
	}

	c := cpu.New(bus)
	c.PC = pc
	c.SP = 0xFD

	m := model{cpu: c, bus: bus}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

type model struct {
	cpu *cpu.CPU
	bus *memory.FlatBus

	prevPC uint16
	err    error
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "n":
			m.prevPC = m.cpu.PC
			if _, err := m.cpu.Step(); err != nil {
				m.err = err
			}
		}
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle = lipgloss.NewStyle().Reverse(true)
)

func (m model) registers() string {
	flags := []struct {
		name string
		set  bool
	}{
		{"N", m.cpu.P&cpu.PNegative != 0},
		{"V", m.cpu.P&cpu.POverflow != 0},
		{"B", m.cpu.P&cpu.PBreak != 0},
		{"D", m.cpu.P&cpu.PDecimal != 0},
		{"I", m.cpu.P&cpu.PInterrupt != 0},
		{"Z", m.cpu.P&cpu.PZero != 0},
		{"C", m.cpu.P&cpu.PCarry != 0},
	}
	var flagLine strings.Builder
	for _, f := range flags {
		if f.set {
			flagLine.WriteString(strings.ToUpper(f.name) + " ")
		} else {
			flagLine.WriteString(strings.ToLower(f.name) + " ")
		}
	}

	return fmt.Sprintf(
		"%s\nPC: $%04X (prev $%04X)\nA:  $%02X\nX:  $%02X\nY:  $%02X\nSP: $%02X\ncyc: %d\n\n%s\n%s",
		headerStyle.Render("registers"),
		m.cpu.PC, m.prevPC, m.cpu.A, m.cpu.X, m.cpu.Y, m.cpu.SP, m.cpu.Cycles,
		headerStyle.Render("flags"), flagLine.String(),
	)
}

func (m model) disassembly() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("disassembly") + "\n")

	listing := disasm.Listing(m.cpu.PC, 12, m.bus)
	for _, inst := range listing {
		line := fmt.Sprintf("$%04X  %s", inst.Address, inst.Text)
		if inst.Address == m.cpu.PC {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.disassembly(), "   ", m.registers())
	footer := "\nspace/n: step   q: quit"
	if m.err != nil {
		footer = fmt.Sprintf("\nerror: %v   q: quit", m.err)
	}
	return body + footer
}
