// Package resolver turns a Schema into a Loaded configuration in a single
// all-or-nothing pass.
package resolver

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fractic-io/envcfg/pkg/config"
	"github.com/fractic-io/envcfg/pkg/provider"
	"github.com/fractic-io/envcfg/pkg/schema"
)

const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 2 * time.Second
	DefaultFetchTimeout    = 5 * time.Second
	DefaultParallelism     = 4
)

// State is the position of a Resolver in its single pass.
type State int32

const (
	Unloaded State = iota
	Resolving
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unloaded"
	}
}

// Resolver performs one resolution pass against a fixed set of providers.
// It is single-use: values are never re-fetched or cached.
type Resolver struct {
	providers provider.Set
	log       logrus.FieldLogger

	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	fetchTimeout    time.Duration
	parallelism     int
	limiter         *rate.Limiter

	state atomic.Int32
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Values are never logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRetry sets how often a transient failure is retried and the bounds of
// the exponential backoff between attempts. maxRetries of 0 disables retries.
func WithRetry(maxRetries int, initial, maxInterval time.Duration) Option {
	return func(r *Resolver) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		r.maxRetries = uint64(maxRetries)
		if initial > 0 {
			r.initialInterval = initial
		}
		if maxInterval > 0 {
			r.maxInterval = maxInterval
		}
	}
}

// WithFetchTimeout bounds each remote fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.fetchTimeout = d
	}
}

// WithParallelism bounds how many remote fetches run at once.
func WithParallelism(n int) Option {
	return func(r *Resolver) {
		if n < 1 {
			n = 1
		}
		r.parallelism = n
	}
}

// WithRateLimit caps remote fetches to rps per second with the given burst.
// A non-positive rps removes the cap.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Resolver) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New returns a Resolver over providers.
func New(providers provider.Set, opts ...Option) *Resolver {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Resolver{
		providers:       providers,
		log:             discard,
		maxRetries:      DefaultMaxRetries,
		initialInterval: DefaultInitialInterval,
		maxInterval:     DefaultMaxInterval,
		fetchTimeout:    DefaultFetchTimeout,
		parallelism:     DefaultParallelism,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load resolves s with a fresh Resolver.
func Load(ctx context.Context, s *schema.Schema, providers provider.Set, opts ...Option) (*config.Loaded, error) {
	return New(providers, opts...).Load(ctx, s)
}

// State reports where the resolver is in its pass.
func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Load fetches and converts every key of s. It never stops at the first
// failure: either every key resolves and a Loaded is returned, or a
// *LoadError lists every failing key in declaration order.
//
// A nil schema or a source kind without a provider is rejected before any
// fetch and leaves the resolver unused.
func (r *Resolver) Load(ctx context.Context, s *schema.Schema) (*config.Loaded, error) {
	if s == nil {
		return nil, ErrNilSchema
	}
	if err := r.checkProviders(s); err != nil {
		return nil, err
	}
	if !r.state.CompareAndSwap(int32(Unloaded), int32(Resolving)) {
		return nil, ErrAlreadyResolved
	}

	start := time.Now()
	c := newCollector(s.Len())

	g := new(errgroup.Group)
	g.SetLimit(r.parallelism)
	for i, f := range s.Fields() {
		i, f := i, f
		p := r.providers[f.Source().Kind()]
		if f.Source().Kind() == schema.SourceEnv {
			r.resolveKey(ctx, c, i, f, p, false)
			continue
		}
		g.Go(func() error {
			r.resolveKey(ctx, c, i, f, p, true)
			return nil
		})
	}
	_ = g.Wait()

	failures := c.ordered()
	logger := r.log.WithFields(logrus.Fields{
		"keys":     s.Len(),
		"failures": len(failures),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	if len(failures) > 0 {
		r.state.Store(int32(Failed))
		logger.Info("configuration failed to load")
		return nil, &LoadError{failures: failures}
	}

	loaded, err := config.Seal(s, c.values)
	if err != nil {
		r.state.Store(int32(Failed))
		return nil, err
	}
	r.state.Store(int32(Loaded))
	logger.Info("configuration loaded")
	return loaded, nil
}

func (r *Resolver) checkProviders(s *schema.Schema) error {
	var missing []schema.SourceKind
	for _, kind := range s.Kinds() {
		if r.providers[kind] == nil {
			missing = append(missing, kind)
		}
	}
	if len(missing) > 0 {
		return &MissingProviderError{Kinds: missing}
	}
	return nil
}

func (r *Resolver) resolveKey(ctx context.Context, c *collector, i int, f schema.Field, p provider.Provider, remote bool) {
	log := r.log.WithFields(logrus.Fields{
		"key":    f.Name(),
		"source": f.Source().String(),
	})

	raw, attempts, err := r.fetch(ctx, log, f.Source().Identifier(), p, remote)
	if err != nil {
		kind := provider.KindOf(err)
		log.WithField("attempt", attempts).Debugf("fetch failed: %s", kind)
		if kind == provider.NotFound {
			c.fail(i, &MissingRequiredValue{Name: f.Name(), Source: f.Source(), Err: err})
			return
		}
		c.fail(i, &ProviderError{Name: f.Name(), Source: f.Source(), Kind: kind, Attempts: attempts, Err: err})
		return
	}

	v, err := f.Convert(raw)
	if err != nil {
		log.Debug("conversion failed")
		c.fail(i, &TypeConversionError{Name: f.Name(), Source: f.Source(), Expected: f.Kind(), Raw: raw, Err: err})
		return
	}
	log.Debug("resolved")
	c.set(f.Name(), v)
}

// fetch calls p until it succeeds, fails permanently or the retry budget is
// spent. Only remote fetches are rate limited and bounded by the timeout.
func (r *Resolver) fetch(ctx context.Context, log logrus.FieldLogger, id string, p provider.Provider, remote bool) (string, int, error) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if remote && r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", backoff.Permanent(provider.TransientError(id, err))
			}
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if remote && r.fetchTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		}
		raw, err := p.Fetch(callCtx, id)
		cancel()
		if err != nil {
			if provider.IsPermanent(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return raw, nil
	}

	notify := func(err error, wait time.Duration) {
		log.WithFields(logrus.Fields{
			"attempt": attempts,
			"wait":    wait.String(),
		}).Debug("transient fetch failure, retrying")
	}

	raw, err := backoff.RetryNotifyWithData[string](op, backoff.WithContext(r.newBackOff(), ctx), notify)
	return raw, attempts, err
}

func (r *Resolver) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, r.maxRetries)
}

// collector accumulates outcomes from concurrent fetches.
type collector struct {
	mu       sync.Mutex
	values   map[string]any
	failures map[int]Failure
}

func newCollector(n int) *collector {
	return &collector{
		values:   make(map[string]any, n),
		failures: make(map[int]Failure),
	}
}

func (c *collector) set(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = v
}

func (c *collector) fail(i int, f Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[i] = f
}

// ordered returns the failures in declaration order. It must only be called
// once every fetch has finished.
func (c *collector) ordered() []Failure {
	idx := make([]int, 0, len(c.failures))
	for i := range c.failures {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]Failure, len(idx))
	for j, i := range idx {
		out[j] = c.failures[i]
	}
	return out
}
