package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/lhoward/staveplay"
	"github.com/lhoward/staveplay/internal/transport"
)

var (
	playSampleRate int
	playVolume     float64
	playTempoScale float64
)

func init() {
	playCmd.Flags().IntVar(&playSampleRate, "sample-rate", 48000, "output sample rate")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1.0, "master volume scalar")
	playCmd.Flags().Float64Var(&playTempoScale, "tempo-scale", 1.0, "tempo multiplier (0.5 = half speed)")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <song.json|score.xml|score.mxl>",
	Short: "Plays a composition through the speakers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		comp, err := loadComposition(args[0])
		if err != nil {
			log.Fatal(err)
		}

		engine := transport.New(playSampleRate)
		if err := engine.EnableOutput(); err != nil {
			log.Fatal(err)
		}
		defer engine.Close()
		engine.SetVolume(playVolume)

		driver := staveplay.New(engine, staveplay.WithTempoScale(playTempoScale))
		if err := driver.Play(comp); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("playing %q: %d notes, %.1fs\n", args[0], len(comp.Notes), driver.Duration().Seconds())

		// The animation loop: sample the clock each tick; Frame flips the
		// driver to Stopped when the expanded timeline runs out.
		ticker := time.NewTicker(16 * time.Millisecond)
		defer ticker.Stop()
		lastReport := -1
		for range ticker.C {
			fr := driver.Frame()
			if fr.State == staveplay.Stopped {
				break
			}
			if sec := int(fr.Beat); sec != lastReport && fr.PlayheadVisible {
				lastReport = sec
				fmt.Printf("beat %5.1f  row %d  x %.0f\n", fr.Beat, fr.PlayheadSystem, fr.PlayheadX)
			}
		}
		fmt.Println("playback completed")
	},
}
