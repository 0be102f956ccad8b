package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/diffdrive/components/base/differential"
	"go.viam.com/diffdrive/script"
)

// progressPrinter returns a runner progress hook printing "[i/n] step (duration)" lines.
func progressPrinter(w io.Writer, s *script.Script) func(int, script.Step) {
	counter := color.New(color.FgCyan, color.Bold)
	stopped := color.New(color.FgYellow)
	moving := color.New(color.FgGreen)

	return func(i int, step script.Step) {
		desc := moving
		if step.Gait == differential.GaitStop {
			desc = stopped
		}
		line := fmt.Sprintf("%s %s", counter.Sprintf("[%d/%d]", i+1, len(s.Steps)), desc.Sprint(step.String()))
		if step.Duration > 0 {
			line += fmt.Sprintf(" (%s)", step.Duration)
		}
		printf(w, "%s", line)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// scriptsTable renders the built-in scripts with their layout, size and whether they need
// reverse steer.
func scriptsTable() (string, error) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Name", "Layout", "Steps", "Duration", "Reverse steer", "Description"})
	for _, name := range script.BuiltinNames() {
		s, err := script.Builtin(name)
		if err != nil {
			return "", err
		}
		layout := string(s.Layout)
		if layout == "" {
			layout = "any"
		}
		t.AppendRow(table.Row{
			s.Name,
			layout,
			len(s.Steps),
			s.TotalDuration().String(),
			yesNo(s.RequiresReverseSteer()),
			s.Description,
		})
	}
	return t.Render(), nil
}

// gaitsTable renders every gait with the wheel speeds it produces with default parameters.
func gaitsTable() string {
	params := differential.DefaultGaitParameters()
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Gait", "Left", "Right", "Turn ratio", "Reverse steer"})
	for _, g := range differential.Gaits() {
		left, right := differential.WheelSpeeds(g, params)
		t.AppendRow(table.Row{g.String(), left, right, yesNo(g.UsesTurnRatio()), yesNo(g.RequiresReverseSteer())})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("speed %d, ratio %.2f", params.Speed, params.TurnRatio)})
	return t.Render()
}
