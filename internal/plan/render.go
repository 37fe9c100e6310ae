package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Render writes the plan in the requested format: table (default), yaml or
// json.
func (p *Plan) Render(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(p)
	case "", "table":
		return p.renderTable(w)
	default:
		return fmt.Errorf("unknown output format %q (expected table, yaml or json)", format)
	}
}

func (p *Plan) renderTable(w io.Writer) error {
	titleCaser := cases.Title(language.English)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s (%s)", p.RunName, p.ConfigHash[:12])
	t.AppendHeader(table.Row{"Setting", "Value"})

	rows := []struct {
		name  string
		value string
	}{
		{"precision", p.Precision},
		{"sequence length", fmt.Sprintf("%d", p.SeqLen)},
		{"total tokens", humanCount(p.TotalTokens)},
		{"total batches", humanCount(p.TotalBatches)},
		{"total samples", humanCount(p.TotalSamples)},
		{"warmup tokens", humanCount(p.WarmupTokens)},
		{"scheduler", fmt.Sprintf("%s (base lr %g)", p.Scheduler, p.BaseLR)},
		{"global batch", fmt.Sprintf("%d (%d devices x %d microbatch x %d accum)",
			p.Geometry.GlobalBatchSize, p.Geometry.WorldSize, p.Geometry.MicrobatchSize, p.Geometry.GradAccumSteps)},
		{"save interval", fmt.Sprintf("every %d batches -> %d checkpoints (%d retained)",
			p.SaveEveryBatches, p.CheckpointCount, p.RetainedCount)},
		{"save folder", p.SaveFolder},
	}
	if p.BatchRampTokens > 0 {
		rows = append(rows, struct{ name, value string }{
			"batch ramp", fmt.Sprintf("over %s tokens", humanCount(p.BatchRampTokens))})
	}
	if p.EvalEveryBatches > 0 {
		rows = append(rows, struct{ name, value string }{
			"eval interval", fmt.Sprintf("every %d batches", p.EvalEveryBatches)})
	}
	if p.PaddingWaste > 0 {
		rows = append(rows, struct{ name, value string }{
			"padding waste", fmt.Sprintf("%.1f%%", p.PaddingWaste*100)})
	}

	for _, row := range rows {
		t.AppendRow(table.Row{titleCaser.String(row.name), row.value})
	}
	t.Render()

	return p.renderLRCurve(w)
}

// renderLRCurve draws a coarse sparkline of the LR multiplier over the run.
func (p *Plan) renderLRCurve(w io.Writer) error {
	if len(p.LRCurve) == 0 {
		return nil
	}
	marks := []rune("▁▂▃▄▅▆▇█")
	var sb strings.Builder
	for _, point := range p.LRCurve {
		idx := int(point.Multiplier * float64(len(marks)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(marks) {
			idx = len(marks) - 1
		}
		sb.WriteRune(marks[idx])
	}
	_, err := fmt.Fprintf(w, "LR curve: %s\n", sb.String())
	return err
}

// humanCount formats large counts with thousands separators.
func humanCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}
