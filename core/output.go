package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
	Errors  io.Writer
}

// NewPrinter creates a default Printer writing to stdout and stderr.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout, Errors: os.Stderr}
}

// PrintMetadata renders one file's report.
func (p *Printer) PrintMetadata(m *Metadata) {
	if p.JSON {
		p.printJSON(m)
		return
	}
	fmt.Fprintf(p.Writer, "Metadata for %s:\n", m.FilePath)
	if p.Verbose {
		fmt.Fprintf(p.Writer, "  (%s, %s, %dx%d, %s)\n",
			m.Format.Name(), m.ColorMode, m.Width, m.Height, units.HumanSize(float64(m.Size)))
	}
	fmt.Fprintf(p.Writer, "%s\n\n", m.Report)
}

type jsonField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type jsonOutput struct {
	FilePath    string      `json:"file"`
	Format      string      `json:"format,omitempty"`
	ColorMode   string      `json:"color_mode,omitempty"`
	Width       int         `json:"width,omitempty"`
	Height      int         `json:"height,omitempty"`
	Size        int64       `json:"size,omitempty"`
	HasMetadata *bool       `json:"has_metadata,omitempty"`
	Fields      []jsonField `json:"fields,omitempty"`
	Dropped     []uint16    `json:"dropped_tags,omitempty"`
	Output      string      `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
}

func (p *Printer) printJSON(m *Metadata) {
	has := m.HasMetadata()
	out := jsonOutput{
		FilePath:    m.FilePath,
		Format:      m.Format.Name(),
		ColorMode:   m.ColorMode,
		Width:       m.Width,
		Height:      m.Height,
		Size:        m.Size,
		HasMetadata: &has,
		Dropped:     m.Dropped,
	}
	for _, k := range m.Report.Keys() {
		out.Fields = append(out.Fields, jsonField{Key: k, Value: m.Report[k]})
	}
	p.emit(out)
}

func (p *Printer) emit(v jsonOutput) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintCheck prints the has-metadata verdict for one file.
func (p *Printer) PrintCheck(path string, has bool) {
	if p.JSON {
		p.emit(jsonOutput{FilePath: path, HasMetadata: &has})
		return
	}
	verdict := "no metadata"
	if has {
		verdict = "has metadata"
	}
	fmt.Fprintf(p.Writer, "%s: %s\n", path, verdict)
}

// PrintStripped reports a finished strip.
func (p *Printer) PrintStripped(path, output string) {
	if p.JSON {
		p.emit(jsonOutput{FilePath: path, Output: output})
		return
	}
	p.PrintSuccess(fmt.Sprintf("%s → %s", path, output))
}

// PrintFailure reports a per-file error.
func (p *Printer) PrintFailure(path string, err error) {
	if p.JSON {
		p.emit(jsonOutput{FilePath: path, Error: err.Error()})
		return
	}
	fmt.Fprintf(p.Errors, "✗ Error: %s: %v\n", path, err)
}

// PrintTable renders a one-line-per-file overview.
func (p *Printer) PrintTable(files []*Metadata) {
	table := tablewriter.NewTable(p.Writer,
		tablewriter.WithHeader([]string{"FILE", "FORMAT", "MODE", "DIMENSIONS", "SIZE", "METADATA"}),
	)
	for _, m := range files {
		has := "no"
		if m.HasMetadata() {
			has = fmt.Sprintf("%d fields", len(m.Report)+len(m.Dropped))
		}
		table.Append([]string{
			m.FilePath,
			m.Format.Name(),
			m.ColorMode,
			fmt.Sprintf("%dx%d", m.Width, m.Height),
			units.HumanSize(float64(m.Size)),
			has,
		})
	}
	table.Render()
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	fmt.Fprintln(p.Writer, "✓ "+msg)
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}
