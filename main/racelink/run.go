package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jd3nn1s/racelink"
	"github.com/jd3nn1s/racelink/bitfield"
	"github.com/jd3nn1s/racelink/forwarder"
	"github.com/jd3nn1s/racelink/natsrelay"
	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/roster"
	"github.com/jd3nn1s/racelink/telemetry"
)

const clampReportInterval = 10 * time.Second

func newRunCmd() *cobra.Command {
	var (
		testMode    bool
		printFrames bool
		version     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the in-car logger and forward telemetry over the radio link",
		Long: `Run the in-car logger and forward telemetry over the radio link.

Send SIGUSR1 when the race starts. The current GPS altitude becomes the
reference later altitudes are sent relative to, and the next frame carries
the race start warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v, err := telemetryVersion(config, version)
			if err != nil {
				return err
			}
			car, err := config.Car()
			if err != nil {
				return err
			}
			drivers, err := config.DriverIDs()
			if err != nil {
				return err
			}

			total := bitfield.NewClampCounter()
			recent := bitfield.NewClampCounter()
			codec, err := telemetry.NewCodec(v,
				telemetry.WithClampObserver(bitfield.MultiObserver{total, recent}),
				telemetry.WithLogger(log.WithField("car", car)))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := []racelink.LoggerOption{
				racelink.WithRoster(&config.Roster),
				racelink.WithGPSPort(config.Telemetry.GPSPort),
				racelink.WithIdentity(car, config.Telemetry.DeviceID),
				racelink.WithDrivers(drivers),
			}
			if testMode {
				opts = append(opts, racelink.WithTestMode())
			}
			l := racelink.NewLogger(opts...)

			udp, err := forwarder.NewUDPForwarder(&config.UDP, codec)
			if err != nil {
				return errors.Wrap(err, "unable to start UDP forwarder")
			}
			defer udp.Close()
			go func() {
				if err := udp.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithField("err", err).Error("udp forwarder stopped")
				}
			}()
			l.AddForwarder(udp)

			if config.NATS.URL != "" {
				relay, err := natsrelay.Connect(config.NATS, codec, racestate.NewCodec())
				if err != nil {
					return err
				}
				defer relay.Close()
				l.AddForwarder(relay)
			}
			if printFrames {
				l.AddForwarder(&printForwarder{out: cmd.OutOrStdout(), roster: &config.Roster})
			}

			log.WithFields(log.Fields{
				"version": v,
				"car":     car,
				"bytes":   humanize.Bytes(uint64(codec.Size())),
				"server":  fmt.Sprintf("%s:%d", config.UDP.Server, config.UDP.Port),
			}).Info("logger running")

			go watchRaceStart(ctx, l)
			go reportClamps(ctx, recent, clampReportInterval)
			err = l.Run(ctx)
			if n := total.Total(); n > 0 {
				log.WithField("clamped", total.Snapshot()).Warnf("%s values clamped", humanize.Comma(int64(n)))
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&testMode, "testmode", false, "generate test data")
	cmd.Flags().BoolVar(&printFrames, "print-telemetry", false, "print telemetry to stdout")
	addVersionFlag(cmd.Flags(), &version)
	return cmd
}

// watchRaceStart starts the race on SIGUSR1, taking the current GPS altitude
// as the reference.
func watchRaceStart(ctx context.Context, l *racelink.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)
	defer signal.Stop(sigChan)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			l.StartRace(math.NaN())
		}
	}
}

// reportClamps logs the fields clamped since the previous report.
func reportClamps(ctx context.Context, counter *bitfield.ClampCounter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if counter.Total() == 0 {
				continue
			}
			log.WithField("clamped", counter.SnapshotAndReset()).Warn("values out of range for the wire layout")
		}
	}
}

type printForwarder struct {
	out    io.Writer
	roster *roster.Roster
}

func (p *printForwarder) Forward(f *telemetry.Frame) error {
	return printTelemetry(p.out, f, p.roster)
}
