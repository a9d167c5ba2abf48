package racelink

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	retrySleep    = time.Second
	retryMaxSleep = 30 * time.Second
)

// Retryable is a device that can be reopened after it fails.
type Retryable interface {
	Open() error
	Close() error
	Start(ctx context.Context) error
	Name() string
}

// retry keeps r running until ctx is done, reopening it after every error.
// The pause between attempts doubles while failures continue and resets
// once Start returns cleanly.
func retry(ctx context.Context, r Retryable) error {
	errStarting := errors.New("starting")
	err := errStarting
	sleep := retrySleep
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			if err != errStarting {
				log.WithField("err", err).Errorf("%s: reconnecting due to error", r.Name())
				if err = r.Close(); err != nil {
					log.WithField("err", err).Warnf("%s: unable to close", r.Name())
				}
				if !sleepCtx(ctx, sleep) {
					return ctx.Err()
				}
				sleep *= 2
				if sleep > retryMaxSleep {
					sleep = retryMaxSleep
				}
			}
			err = r.Open()
			if err != nil {
				continue
			}
		}
		err = r.Start(ctx)
		if err == nil {
			sleep = retrySleep
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
