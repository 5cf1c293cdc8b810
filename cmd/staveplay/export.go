package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lhoward/staveplay"
	"github.com/lhoward/staveplay/internal/midifile"
)

var (
	exportOut        string
	exportSampleRate int
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (.mid or .wav)")
	exportCmd.Flags().IntVar(&exportSampleRate, "sample-rate", 48000, "sample rate for wav output")
	exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <song.json|score.xml|score.mxl>",
	Short: "Exports the repeats-flattened sequence as a MIDI or WAV file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		comp, err := loadComposition(args[0])
		if err != nil {
			log.Fatal(err)
		}
		switch strings.ToLower(filepath.Ext(exportOut)) {
		case ".mid", ".midi":
			if err := midifile.WriteFile(comp, exportOut); err != nil {
				log.Fatal(err)
			}
		case ".wav":
			samples, err := staveplay.RenderSamples(comp, exportSampleRate)
			if err != nil {
				log.Fatal(err)
			}
			data := staveplay.EncodeWAVFloat32LE(samples, exportSampleRate, 2)
			if err := os.WriteFile(exportOut, data, 0o644); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unsupported output extension %q (want .mid or .wav)", filepath.Ext(exportOut))
		}
		fmt.Printf("wrote %s\n", exportOut)
	},
}
