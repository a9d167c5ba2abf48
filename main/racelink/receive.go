package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jd3nn1s/racelink"
	"github.com/jd3nn1s/racelink/forwarder"
	"github.com/jd3nn1s/racelink/natsrelay"
	"github.com/jd3nn1s/racelink/racestate"
	"github.com/jd3nn1s/racelink/telemetry"
)

const statsInterval = 30 * time.Second

func newReceiveCmd() *cobra.Command {
	var (
		version     string
		boards      bool
		printFrames bool
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Receive radio packets in the pits and relay them",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v, err := telemetryVersion(config, version)
			if err != nil {
				return err
			}
			codec, err := telemetry.NewCodec(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			receiver, err := forwarder.Listen(config.UDP.Listen, codec)
			if err != nil {
				return err
			}
			defer receiver.Close()

			var relay *natsrelay.Relay
			if config.NATS.URL != "" {
				relay, err = natsrelay.Connect(config.NATS, codec, racestate.NewCodec())
				if err != nil {
					return err
				}
				defer relay.Close()
			}

			if boards {
				if relay == nil {
					return errors.New("display boards need race state from nats, set [nats] url")
				}
				boardFwd := racelink.NewBoardForwarder(config.CAN)
				go boardFwd.Run(ctx)
				sub, err := relay.SubscribeRaceState(func(f *racestate.Frame) {
					log.WithFields(log.Fields{
						"flag": f.Flag,
						"cars": f.Active(),
					}).Debug("race state")
					if err := boardFwd.Forward(f); err != nil {
						log.WithField("err", err).Error("unable to update boards")
					}
				})
				if err != nil {
					return err
				}
				defer func() {
					_ = sub.Unsubscribe()
				}()
			}

			handlers := forwarder.Handlers{
				Telemetry: func(f *telemetry.Frame) {
					if err := config.Roster.Validate(f); err != nil {
						log.WithField("err", err).Warn("frame indices outside roster")
					}
					log.WithFields(log.Fields{
						"car":      config.Roster.CarName(f.SourceID),
						"driver":   config.Roster.CurrentDriver(f),
						"laps":     f.Laps,
						"warnings": f.Warnings,
					}).Debug("telemetry")
					if printFrames {
						if err := printTelemetry(cmd.OutOrStdout(), f, &config.Roster); err != nil {
							log.WithField("err", err).Error("unable to print telemetry")
						}
					}
					if relay != nil {
						if err := relay.PublishTelemetry(f); err != nil {
							log.WithField("err", err).Error("unable to relay telemetry")
						}
					}
				},
			}

			go reportReceiverStats(ctx, receiver, statsInterval)
			log.WithFields(log.Fields{
				"version": v,
				"listen":  receiver.Addr().String(),
			}).Info("receiving")
			err = receiver.Start(ctx, handlers)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&boards, "boards", false, "publish race state received over nats to the display boards over CAN")
	cmd.Flags().BoolVar(&printFrames, "print-telemetry", false, "print telemetry to stdout")
	addVersionFlag(cmd.Flags(), &version)
	return cmd
}

func reportReceiverStats(ctx context.Context, r *forwarder.Receiver, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Infof("received %s packets, dropped %s",
				humanize.Comma(int64(r.Received())),
				humanize.Comma(int64(r.Dropped())))
		}
	}
}
