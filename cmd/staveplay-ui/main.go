// staveplay-ui is a minimal visual harness for the playback driver: it draws
// the composition's rows and notes, sweeps the playhead, and highlights the
// sounding note. Space toggles play/pause, S stops, arrow keys seek.
package main

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/lhoward/staveplay"
	"github.com/lhoward/staveplay/internal/musicxml"
	"github.com/lhoward/staveplay/internal/score"
	"github.com/lhoward/staveplay/internal/timeline"
	"github.com/lhoward/staveplay/internal/transport"
)

const (
	windowW      = 1100
	windowH      = 640
	uiSampleRate = 48000

	topMargin = 60
	rowHeight = 110
	noteSize  = 12
)

var (
	bgColor       = color.RGBA{246, 243, 235, 255}
	staffColor    = color.RGBA{120, 120, 120, 255}
	barColor      = color.RGBA{180, 180, 180, 255}
	noteColor     = color.RGBA{40, 80, 160, 255}
	restColor     = color.RGBA{170, 170, 170, 255}
	activeColor   = color.RGBA{220, 120, 20, 255}
	playheadColor = color.RGBA{200, 40, 40, 255}
)

type game struct {
	driver *staveplay.Driver
	comp   *score.Composition
	mapper timeline.Mapper
	rows   int
	frame  staveplay.Frame
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if err := g.driver.TogglePlayPause(g.comp); err != nil {
			log.Println(err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.driver.Stop()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		g.driver.Seek(g.driver.CurrentBeat() - 1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		g.driver.Seek(g.driver.CurrentBeat() + 1)
	}
	g.frame = g.driver.Frame()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	beatsPerRow := g.mapper.BeatsPerRow
	rowWidth := beatsPerRow * g.mapper.BeatWidth
	for row := 0; row < g.rows; row++ {
		y := float64(topMargin + row*rowHeight)
		ebitenutil.DrawRect(screen, g.mapper.LeftMargin, y+rowHeight/2, rowWidth, 2, staffColor)
		for m := 0; m <= g.comp.Layout.MeasuresPerRow; m++ {
			x := g.mapper.LeftMargin + float64(m*g.comp.BeatsPerMeasure)*g.mapper.BeatWidth
			ebitenutil.DrawRect(screen, x, y+20, 1, rowHeight-40, barColor)
		}
	}

	for _, n := range g.comp.Notes {
		sys, x := g.mapper.Visual(n.AbsoluteBeat)
		y := float64(topMargin+sys*rowHeight) + g.noteOffset(n)
		col := noteColor
		if n.IsRest() {
			col = restColor
		}
		if n.ID != "" && n.ID == g.frame.ActiveNoteID {
			col = activeColor
		}
		w := n.Duration * g.mapper.BeatWidth * 0.8
		if w < noteSize {
			w = noteSize
		}
		ebitenutil.DrawRect(screen, x, y, w, noteSize, col)
	}

	if g.frame.PlayheadVisible {
		y := float64(topMargin + g.frame.PlayheadSystem*rowHeight)
		ebitenutil.DrawRect(screen, g.frame.PlayheadX, y+10, 2, rowHeight-20, playheadColor)
	}

	status := fmt.Sprintf("%s  beat %.2f  [space] play/pause  [s] stop  [arrows] seek",
		g.frame.State, g.frame.Beat)
	ebitenutil.DebugPrintAt(screen, status, 16, 16)
}

// noteOffset places higher pitches higher inside the row.
func (g *game) noteOffset(n score.Note) float64 {
	if n.IsRest() {
		return rowHeight / 2
	}
	midi, err := score.MIDINumber(n.Pitch)
	if err != nil {
		return rowHeight / 2
	}
	off := rowHeight/2 - float64(midi-60)*3
	return math.Max(15, math.Min(rowHeight-15, off))
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return windowW, windowH
}

func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: staveplay-ui <song.json|score.xml|score.mxl>")
	}
	path := os.Args[1]
	var comp *score.Composition
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".musicxml", ".mxl":
		comp, err = musicxml.ImportFile(path)
	default:
		comp, err = score.Load(path)
	}
	if err != nil {
		log.Fatal(err)
	}

	engine := transport.New(uiSampleRate)
	if err := engine.EnableOutput(); err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	g := &game{
		driver: staveplay.New(engine),
		comp:   comp,
		mapper: timeline.NewMapper(comp.Layout, comp.BeatsPerMeasure),
		rows:   (comp.TotalMeasures + comp.Layout.MeasuresPerRow - 1) / comp.Layout.MeasuresPerRow,
	}
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("staveplay")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
