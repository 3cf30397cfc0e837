package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/ppiankov/qaforge/internal/model"
)

// stageRows selects which counters a stage reports
type stageRows int

const (
	rowsSegment stageRows = iota
	rowsTriples
	rowsDialogues
)

func renderSummary(s model.RunSummary, stage stageRows) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Count"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	add := func(label string, n int) {
		tw.AppendRow(table.Row{label, strconv.Itoa(n)})
	}

	switch stage {
	case rowsSegment:
		add("Documents read", s.DocumentsRead)
		add("Documents skipped", s.DocumentsSkipped)
		add("Records segmented", s.RecordsSegmented)
		if s.RecordsCapped > 0 {
			add("Records over cap", s.RecordsCapped)
		}
	case rowsTriples:
		add("Units attempted", s.UnitsAttempted)
		add("Units failed", s.UnitsFailed)
		add("Requests sent", s.Attempts)
		add("Triples accepted", s.TriplesAccepted)
		add("Triples rejected", s.TriplesRejected)
		for _, reason := range s.SortedReasons() {
			add("  "+reason, s.RejectReasons[reason])
		}
	case rowsDialogues:
		add("Units attempted", s.UnitsAttempted)
		add("Units failed", s.UnitsFailed)
		add("Requests sent", s.Attempts)
		add("Dialogues generated", s.DialoguesGenerated)
	}

	tw.SetCaption("run %s in %s", s.RunID, s.Duration.Round(time.Millisecond))
	return tw.Render()
}

func printSummary(w io.Writer, s model.RunSummary, stage stageRows) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderSummary(s, stage))
}
