package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lhoward/staveplay/internal/musicxml"
	"github.com/lhoward/staveplay/internal/score"
)

var rootCmd = &cobra.Command{
	Use:   "staveplay",
	Short: "Playback engine for the children's notation editor",
	Long:  `Expands a composition's repeat sections into a linear playback sequence and drives synchronized audio and cursor timelines.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadComposition reads a song from the editor's JSON format or imports a
// MusicXML score, picked by file extension.
func loadComposition(path string) (*score.Composition, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".musicxml", ".mxl":
		return musicxml.ImportFile(path)
	default:
		return score.Load(path)
	}
}
