package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	debugLog   bool
	sampleRate int
)

var rootCmd = &cobra.Command{
	Use:   "harpichord",
	Short: "Chord synthesizer with harp plucks, drums and MIDI bridging",
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "development logging (human-readable, debug level)")
	rootCmd.PersistentFlags().IntVar(&sampleRate, "sample-rate", 44100, "engine sample rate in Hz")
}

func newLogger() (*zap.Logger, error) {
	if debugLog {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
