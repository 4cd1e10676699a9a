package shutdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the order components were stopped in.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) component(name string, fail bool) Component {
	return NewFuncComponent(name, func(context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		if fail {
			return errors.New(name + " failed")
		}
		return nil
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPropertyReverseOrderShutdown(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every component stops once, last registered first, failures included", prop.ForAll(
		func(failures []bool) bool {
			rec := &recorder{}
			c := NewCoordinator(WithLogger(quietLogger()))
			names := make([]string, len(failures))
			failed := 0
			for i, fail := range failures {
				names[i] = string(rune('a' + i))
				c.Register(rec.component(names[i], fail))
				if fail {
					failed++
				}
			}

			c.Shutdown()
			c.Shutdown()

			if len(rec.order) != len(names) {
				return false
			}
			for i, name := range rec.order {
				if name != names[len(names)-1-i] {
					return false
				}
			}
			return (c.Err() != nil) == (failed > 0) && c.ExitCode() == 0
		},
		gen.SliceOfN(6, gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestSignalTriggersShutdown(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	rec := &recorder{}
	c := NewCoordinator(WithSignalChannel(sigCh), WithLogger(quietLogger()))
	c.Register(rec.component("store", false))
	c.Register(rec.component("api", false))

	go c.WaitForSignal(context.Background())
	sigCh <- os.Interrupt
	c.Wait()

	assert.Equal(t, []string{"api", "store"}, rec.order)
	assert.Equal(t, 0, c.ExitCode())
}

func TestContextCancelTriggersShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	c := NewCoordinator(WithSignalChannel(make(chan os.Signal)), WithLogger(quietLogger()))
	c.Register(rec.component("api", false))

	go c.WaitForSignal(ctx)
	cancel()
	c.Wait()
	assert.Equal(t, []string{"api"}, rec.order)
}

func TestTimeoutForcesExitCode(t *testing.T) {
	c := NewCoordinator(WithTimeout(20*time.Millisecond), WithLogger(quietLogger()))
	c.Register(NewFuncComponent("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	c.Shutdown()
	assert.Equal(t, 1, c.ExitCode())
	require.ErrorIs(t, c.Err(), context.DeadlineExceeded)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloserComponent(t *testing.T) {
	closed := false
	comp := NewCloserComponent("store", closerFunc(func() error { closed = true; return nil }))
	assert.Equal(t, "store", comp.Name())
	require.NoError(t, comp.Shutdown(context.Background()))
	assert.True(t, closed)
}
