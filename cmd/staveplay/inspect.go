package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/lhoward/staveplay/internal/expand"
	"github.com/lhoward/staveplay/internal/timeline"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <song.json|score.xml|score.mxl>",
	Short: "Prints the resolved sections, expanded sequence and visual timeline",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		comp, err := loadComposition(args[0])
		if err != nil {
			log.Fatal(err)
		}
		notes := comp.PlayableNotes()
		sections := expand.ResolveSections(comp.RepeatMarkers, comp.BeatsPerMeasure)
		events, total := expand.Sequence(notes, sections, comp.TotalBeats())
		segments := timeline.Build(total, sections, timeline.NewMapper(comp.Layout, comp.BeatsPerMeasure))

		fmt.Printf("tempo %.0f bpm, %d/%d notes playable, %.0f beats unexpanded, %.0f expanded\n",
			comp.Tempo, len(notes), len(comp.Notes), comp.TotalBeats(), total)

		fmt.Printf("\nrepeat sections (%d):\n", len(sections))
		for _, sec := range sections {
			fmt.Printf("  %-16s beats [%g, %g)\n", sec.PairID, sec.StartBeat, sec.EndBeat)
		}

		fmt.Printf("\nplayback sequence (%d events):\n", len(events))
		for _, ev := range events {
			fmt.Printf("  play %-7g %-6s dur %-5g (from beat %g)\n",
				ev.PlayBeat, ev.Note.Pitch, ev.Note.Duration, ev.Note.AbsoluteBeat)
		}

		fmt.Printf("\nvisual timeline (%d segments):\n", len(segments))
		for _, seg := range segments {
			fmt.Printf("  beats [%-6g %6g) row %d  x %.0f -> %.0f\n",
				seg.StartBeat, seg.EndBeat, seg.System, seg.StartX, seg.EndX)
		}
	},
}
