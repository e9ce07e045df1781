package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/noisefilter/pkg/audio/registry"
)

type pinger interface {
	Ping(context.Context) error
	Close() error
}

type lastSuccessful[T pinger] struct {
	Locker  sync.Mutex
	Factory registry.Factory[T]
}

func (l *lastSuccessful[T]) get() registry.Factory[T] {
	l.Locker.Lock()
	defer l.Locker.Unlock()
	return l.Factory
}

func (l *lastSuccessful[T]) set(factory registry.Factory[T]) {
	l.Locker.Lock()
	defer l.Locker.Unlock()
	l.Factory = factory
}

// autoSelect returns the first backend (ordered by priority) that could be
// initialized and pinged. The factory that succeeded the last time is tried
// first.
func autoSelect[T pinger](
	ctx context.Context,
	kind string,
	last *lastSuccessful[T],
	factories []registry.Factory[T],
) (T, error) {
	if factory := last.get(); factory != nil {
		backend, err := factory.New()
		if err == nil {
			if err := backend.Ping(ctx); err == nil {
				return backend, nil
			}
			_ = backend.Close()
		}
	}

	var mErr *multierror.Error
	for _, factory := range factories {
		backend, err := factory.New()
		logger.Debugf(ctx, "initializing %s %T result is %v", kind, factory, err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to initialize %T: %w", factory, err))
			continue
		}

		err = backend.Ping(ctx)
		logger.Debugf(ctx, "pinging %s %T result is %v", kind, backend, err)
		if err != nil {
			_ = backend.Close()
			mErr = multierror.Append(mErr, fmt.Errorf("unable to ping %T: %w", backend, err))
			continue
		}

		last.set(factory)
		return backend, nil
	}

	var zeroValue T
	if mErr == nil {
		return zeroValue, fmt.Errorf("no %s backends are registered", kind)
	}
	return zeroValue, mErr.ErrorOrNil()
}
