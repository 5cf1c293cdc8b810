package main

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lhoward/staveplay"
	"github.com/lhoward/staveplay/internal/transport"
	"github.com/lhoward/staveplay/internal/web"
)

var (
	serveAddr       string
	serveSampleRate int
	serveSilent     bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&serveSampleRate, "sample-rate", 48000, "output sample rate")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "do not open the speakers (frame/state API only)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve <song.json|score.xml|score.mxl>",
	Short: "Serves the playback control surface over HTTP for a browser renderer",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		comp, err := loadComposition(args[0])
		if err != nil {
			log.Fatal(err)
		}
		engine := transport.New(serveSampleRate)
		if !serveSilent {
			if err := engine.EnableOutput(); err != nil {
				log.Fatal(err)
			}
		}
		driver := staveplay.New(engine)
		srv := web.New(driver, comp)

		// Clients may stop polling /frame mid-song; keep sampling at display
		// cadence so the end-of-composition transition still happens.
		go func() {
			ticker := time.NewTicker(16 * time.Millisecond)
			defer ticker.Stop()
			for range ticker.C {
				driver.Frame()
			}
		}()

		log.Printf("listening on %s", serveAddr)
		log.Fatal(http.ListenAndServe(serveAddr, srv.Handler()))
	},
}
