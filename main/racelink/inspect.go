package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/roster"
	"github.com/jd3nn1s/racelink/telemetry"
)

func newInspectCmd() *cobra.Command {
	var (
		version   string
		raceState bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <hex>...",
		Short: "Decode a captured frame",
		Long: `Decode a captured frame given as hex. Whitespace between bytes is
ignored so a dump can be pasted as is.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			b, err := parseHex(args)
			if err != nil {
				return err
			}
			if raceState {
				f, err := racestate.NewCodec().Decode(b)
				if err != nil {
					return err
				}
				return printRaceState(cmd.OutOrStdout(), f)
			}
			v, err := telemetryVersion(config, version)
			if err != nil {
				return err
			}
			codec, err := telemetry.NewCodec(v)
			if err != nil {
				return err
			}
			f, err := codec.Decode(b)
			if err != nil {
				return err
			}
			return printTelemetry(cmd.OutOrStdout(), f, &config.Roster)
		},
	}
	cmd.Flags().BoolVar(&raceState, "racestate", false, "decode a race state frame instead of telemetry")
	addVersionFlag(cmd.Flags(), &version)
	return cmd
}

func parseHex(args []string) ([]byte, error) {
	s := strings.Join(strings.Fields(strings.Join(args, " ")), "")
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "frame is not valid hex")
	}
	return b, nil
}

func printTelemetry(w io.Writer, f *telemetry.Frame, r *roster.Roster) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	x, y, z := f.GForce()
	rows := [][2]string{
		{"car", r.CarName(f.SourceID)},
		{"device", fmt.Sprint(f.DeviceID)},
		{"driver", r.CurrentDriver(f)},
		{"drivers", fmt.Sprintf("%s, %s, %s",
			r.DriverName(f.D0ID), r.DriverName(f.D1ID), r.DriverName(f.D2ID))},
		{"warnings", f.Warnings.String()},
		{"rpm", humanize.Comma(int64(f.RPM))},
		{"temp motor", fmt.Sprintf("%d F", f.TempMotorF)},
		{"temp aux", fmt.Sprintf("%d F", f.TempAuxF)},
		{"volts", humanize.FtoaWithDigits(f.Volts(), 1)},
		{"amps", humanize.FtoaWithDigits(f.Amps(), 1)},
		{"speed", humanize.FtoaWithDigits(f.Speed(), 1) + " mph"},
		{"laps", fmt.Sprint(f.Laps)},
		{"lap time", fmt.Sprintf("%ds", f.LapTime)},
		{"race time", fmt.Sprintf("%ds", f.RaceTime)},
		{"time remaining", fmt.Sprintf("%d min", f.TimeRemaining)},
		{"distance", humanize.FtoaWithDigits(f.Miles(), 2) + " mi"},
		{"distance to start", humanize.FtoaWithDigits(f.MilesToStart(), 2) + " mi"},
		{"energy", fmt.Sprintf("%s Wh", humanize.Comma(int64(f.Energy)))},
		{"energy remaining", fmt.Sprintf("%d%%", f.EnergyRemaining)},
		{"total energy", fmt.Sprintf("%s Wh", humanize.Comma(int64(f.TotalEnergyWh())))},
		{"lap energy", fmt.Sprintf("%d Wh", f.LapEnergy)},
		{"lap amps", fmt.Sprint(f.LapAmpsValue())},
		{"lap2 amps", fmt.Sprint(f.Lap2Amps)},
		{"driver times", fmt.Sprintf("%ds, %ds, %ds", f.D0Time, f.D1Time, f.D2Time)},
		{"altitude", fmt.Sprintf("%+d ft", f.Altitude)},
		{"g-force", fmt.Sprintf("%.2f, %.2f, %.2f", x, y, z)},
		{"position", fmt.Sprintf("%.6f, %.6f", f.Latitude, f.Longitude)},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func printRaceState(w io.Writer, f *racestate.Frame) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "flag\t%s\n", f.Flag)
	fmt.Fprintln(tw, "slot\tcar\tpos\tlaps\tbest\tcurrent")
	for _, i := range f.Active() {
		c := f.Cars[i]
		pos := "-"
		if c.Position > 0 {
			pos = humanize.Ordinal(int(c.Position))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%ds\t%ds\n", i, c.Number, pos, c.Laps, c.BestLap, c.CurrentLap)
	}
	return tw.Flush()
}
