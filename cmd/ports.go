package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/icco/touchseq/internal/midiout"
	"github.com/icco/touchseq/internal/sensorlink"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI outputs and serial devices",
	RunE:  runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "MIDI outputs:")
	ports := midiout.ListPorts()
	if len(ports) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for i, name := range ports {
		fmt.Fprintf(out, "  %d: %s\n", i, name)
	}

	fmt.Fprintln(out, "Serial devices:")
	devices, err := sensorlink.ListSerialPorts()
	if err != nil {
		return fmt.Errorf("list serial ports: %w", err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, name := range devices {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
