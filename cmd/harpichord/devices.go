package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MagicStino/harpichord-midi/pkg/midibridge"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List MIDI inputs and outputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		b := midibridge.New(midibridge.Config{Logger: log})
		defer b.Close()
		if st := b.RequestAccess(); st != midibridge.StatusReady {
			return fmt.Errorf("midi unavailable (status %s)", st)
		}
		devs := b.Devices()
		if len(devs) == 0 {
			fmt.Println("no midi devices found")
			return nil
		}
		for _, d := range devs {
			fmt.Printf("%-7s %-24s %s\n", d.Direction, d.ID, d.Name)
		}
		return nil
	},
}
