package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
)

// Options tune how sources are opened.
type Options struct {
	BufferSeconds int
	TargetFPS     int
	Warmup        time.Duration
	USBWidth      int
	USBHeight     int
	RetryDelay    time.Duration
	PopTimeout    time.Duration
}

// DefaultOptions mirrors the production defaults.
func DefaultOptions() Options {
	return Options{
		BufferSeconds: 8,
		TargetFPS:     25,
		Warmup:        8 * time.Second,
		USBWidth:      640,
		USBHeight:     360,
		RetryDelay:    defaultBufferRetry,
		PopTimeout:    defaultPopTimeout,
	}
}

// Adapter turns a (protocol, source) pair into an open Source.
type Adapter struct {
	backend Backend
	opts    Options
	logger  *logger.Logger
}

// NewAdapter creates an Adapter on top of backend.
func NewAdapter(backend Backend, opts Options, log *logger.Logger) *Adapter {
	return &Adapter{backend: backend, opts: opts, logger: log}
}

// Open opens the source for protocol. Devices are opened at the reduced USB
// resolution; network sources are wrapped in a smoothing Buffer and given a
// warm-up period before Open returns. Each open is retried once on the
// alternate backend.
func (a *Adapter) Open(ctx context.Context, protocol model.Protocol, source string) (Source, error) {
	switch {
	case protocol == model.ProtocolUSB:
		return a.openWithFallback(protocol, source, func(alternate bool) (Source, error) {
			return a.backend.OpenDevice(source, a.opts.USBWidth, a.opts.USBHeight, alternate)
		})

	case protocol.IsNetwork():
		raw, err := a.openWithFallback(protocol, source, func(alternate bool) (Source, error) {
			return a.backend.OpenURL(source, alternate)
		})
		if err != nil {
			return nil, err
		}

		buf := NewBuffer(raw, BufferOptions{
			Capacity:   a.opts.BufferSeconds * a.opts.TargetFPS,
			TargetFPS:  a.opts.TargetFPS,
			RetryDelay: a.opts.RetryDelay,
			PopTimeout: a.opts.PopTimeout,
		}, a.logger)

		if a.opts.Warmup > 0 {
			a.logger.Info("Warming up %s source %s for %v", protocol, source, a.opts.Warmup)
			timer := time.NewTimer(a.opts.Warmup)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				buf.Release()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		return buf, nil
	}

	return nil, &OpenError{Protocol: protocol, Source: source, Err: fmt.Errorf("unsupported protocol")}
}

func (a *Adapter) openWithFallback(protocol model.Protocol, source string, open func(alternate bool) (Source, error)) (Source, error) {
	src, err := open(false)
	if err == nil && src != nil {
		return src, nil
	}
	a.logger.Warning("Default backend failed for %s source %s: %v, trying alternate", protocol, source, err)

	src, err = open(true)
	if err == nil && src != nil {
		return src, nil
	}
	return nil, &OpenError{Protocol: protocol, Source: source, Err: err}
}
