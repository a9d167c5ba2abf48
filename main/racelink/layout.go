package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jd3nn1s/racelink/bitfield"
	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/telemetry"
)

func newLayoutCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "layout [version]",
		Short: "Print the word layout of the telemetry frame",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions := []telemetry.Version{telemetry.CurrentVersion}
			switch {
			case all:
				versions = []telemetry.Version{telemetry.VersionAltitude, telemetry.VersionAccel, telemetry.VersionGPS}
			case len(args) == 1:
				v, err := telemetry.ParseVersion(args[0])
				if err != nil {
					return err
				}
				versions = []telemetry.Version{v}
			}
			out := cmd.OutOrStdout()
			for _, v := range versions {
				l, err := telemetry.LayoutFor(v)
				if err != nil {
					return err
				}
				if err := printLayout(out, l); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "race state: %s\n", humanize.Bytes(uint64(racestate.FrameSize)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print every version")
	return cmd
}

func printLayout(w io.Writer, l *telemetry.Layout) error {
	fmt.Fprintf(w, "%s (version %d): %s of %s\n", l.Version, int(l.Version),
		humanize.Bytes(uint64(l.Size())), humanize.Bytes(telemetry.MaxPacketSize))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "byte\tword\tsegments")
	offset := 0
	for _, word := range l.Words {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", offset, word.Name, describeSegments(word))
		offset += word.Bytes()
	}
	for _, name := range l.Floats() {
		fmt.Fprintf(tw, "%d\t%s\tfloat32\n", offset, name)
		offset += 4
	}
	return tw.Flush()
}

func describeSegments(word bitfield.Word) string {
	parts := make([]string, 0, len(word.Segments))
	for _, f := range word.Fields() {
		name := f.Name
		if name == "" {
			name = "reserved"
		}
		parts = append(parts, fmt.Sprintf("%s[%d:%d]", name, f.Offset+f.Width-1, f.Offset))
	}
	return strings.Join(parts, " ")
}
