// Package registry keeps named markov models in memory and serializes access
// to each of them. Models are loaded lazily from a store.Store and written
// back on request or, with autosave, after every training call.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/CTAG07/wordchain/pkg/markov"
	"github.com/CTAG07/wordchain/pkg/store"
)

var (
	// ErrModelExists is returned when creating or importing a model under a
	// name that is already taken.
	ErrModelExists = errors.New("model already exists")
	// ErrInvalidMode is returned for an unknown training mode.
	ErrInvalidMode = errors.New("invalid training mode")
	// ErrInvalidName is returned for an empty or whitespace-only model name.
	ErrInvalidName = errors.New("invalid model name")
)

// TrainMode selects how Train feeds text into a model.
type TrainMode string

const (
	// ModeText splits the text into sentences and trains each with endings.
	ModeText TrainMode = "text"
	// ModeSentence trains the whole text as one sequence with endings.
	ModeSentence TrainMode = "sentence"
	// ModeSequence trains every non-empty line as a whitespace-separated token
	// sequence without endings.
	ModeSequence TrainMode = "sequence"
)

// ParseTrainMode converts s to a TrainMode. The empty string is ModeText.
func ParseTrainMode(s string) (TrainMode, error) {
	switch mode := TrainMode(strings.ToLower(s)); mode {
	case "":
		return ModeText, nil
	case ModeText, ModeSentence, ModeSequence:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrInvalidMode, s)
	}
}

// entry guards a single model. Generation registers unseen tokens, so reads
// take the lock exclusively as well.
type entry struct {
	mu      sync.Mutex
	model   *markov.Model
	removed bool // set by Remove under mu
}

// Registry is a set of named models, safe for concurrent use.
type Registry struct {
	store     *store.Store
	mu        sync.RWMutex
	models    map[string]*entry
	autosave  bool
	modelOpts []markov.Option
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithAutosave makes Train save the model after every call. It has no effect
// without a store.
func WithAutosave(enabled bool) Option {
	return func(r *Registry) { r.autosave = enabled }
}

// WithModelOptions sets options applied to every model the registry creates,
// loads or imports.
func WithModelOptions(opts ...markov.Option) Option {
	return func(r *Registry) { r.modelOpts = append(r.modelOpts, opts...) }
}

// New creates a Registry backed by s. A nil store keeps every model in memory
// only.
func New(s *store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:  s,
		models: make(map[string]*entry),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger sets the logger for the Registry and the models it creates from
// then on. By default, all logs are discarded.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *Registry) options(extra ...markov.Option) []markov.Option {
	opts := slices.Clone(r.modelOpts)
	opts = append(opts, markov.WithLogger(r.logger))
	return append(opts, extra...)
}

// exists reports whether name is held in memory or saved in the store.
// The caller must hold r.mu.
func (r *Registry) exists(ctx context.Context, name string) (bool, error) {
	if _, ok := r.models[name]; ok {
		return true, nil
	}
	if r.store == nil {
		return false, nil
	}
	_, err := r.store.Info(ctx, name)
	if errors.Is(err, store.ErrModelNotFound) {
		return false, nil
	}
	return err == nil, err
}

// add registers m under name, failing if the name is taken.
func (r *Registry) add(ctx context.Context, name string, m *markov.Model) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: '%s'", ErrModelExists, name)
	}

	if r.store != nil {
		if err := r.store.Save(ctx, name, m); err != nil {
			return err
		}
	}
	r.models[name] = &entry{model: m}
	return nil
}

// Create adds an empty model, optionally pre-filled with the example seed.
func (r *Registry) Create(ctx context.Context, name string, seedExample bool) error {
	var extra []markov.Option
	if seedExample {
		extra = append(extra, markov.WithExampleSeed())
	}
	if err := r.add(ctx, name, markov.New(r.options(extra...)...)); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Model created",
		slog.String("model_name", name),
		slog.Bool("seed_example", seedExample),
	)
	return nil
}

// Import adds a model read from the JSON produced by Export.
func (r *Registry) Import(ctx context.Context, name string, rd io.Reader) error {
	m, err := markov.Import(rd, r.options()...)
	if err != nil {
		return err
	}
	return r.add(ctx, name, m)
}

// get returns the entry for name, loading it from the store on first use.
func (r *Registry) get(ctx context.Context, name string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.models[name]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.models[name]; ok {
		return e, nil
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: '%s'", store.ErrModelNotFound, name)
	}

	m, err := r.store.Load(ctx, name, r.options()...)
	if err != nil {
		return nil, err
	}
	e = &entry{model: m}
	r.models[name] = e
	return e, nil
}

// with runs fn while holding the lock of the named model.
func (r *Registry) with(ctx context.Context, name string, fn func(*markov.Model) error) error {
	e, err := r.get(ctx, name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return fmt.Errorf("%w: '%s'", store.ErrModelNotFound, name)
	}
	return fn(e.model)
}

// Train feeds text into the named model according to mode.
func (r *Registry) Train(ctx context.Context, name string, mode TrainMode, text string) error {
	return r.with(ctx, name, func(m *markov.Model) error {
		switch mode {
		case ModeText:
			m.TrainText(text)
		case ModeSentence:
			m.Train(text, true)
		case ModeSequence:
			for _, line := range strings.Split(text, "\n") {
				if tokens := strings.Fields(line); len(tokens) > 0 {
					m.TrainSequence(tokens)
				}
			}
		default:
			return fmt.Errorf("%w: '%s'", ErrInvalidMode, mode)
		}

		r.logger.DebugContext(ctx, "Model trained",
			slog.String("model_name", name),
			slog.String("mode", string(mode)),
			slog.Int("messages", m.Messages()),
		)

		if r.autosave && r.store != nil {
			return r.store.Save(ctx, name, m)
		}
		return nil
	})
}

// Generate runs markov.Model.Generate on the named model.
func (r *Registry) Generate(ctx context.Context, name string, seed []string, opts ...markov.GenerateOption) (string, error) {
	var text string
	err := r.with(ctx, name, func(m *markov.Model) error {
		var err error
		text, err = m.Generate(ctx, seed, opts...)
		return err
	})
	return text, err
}

// GenerateStream runs markov.Model.GenerateStream on the named model and
// calls emit for every token. The model stays locked until generation ends.
// If emit returns an error, generation is cancelled and that error returned.
// A generation failure after the seed tokens is returned as well.
func (r *Registry) GenerateStream(ctx context.Context, name string, seed []string, emit func(markov.Token) error, opts ...markov.GenerateOption) error {
	return r.with(ctx, name, func(m *markov.Model) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		tokens, err := m.GenerateStream(ctx, seed, opts...)
		if err != nil {
			return err
		}
		var emitErr, genErr error
		for token := range tokens {
			if token.Err != nil {
				genErr = token.Err
				continue
			}
			if emitErr != nil {
				continue
			}
			if emitErr = emit(token); emitErr != nil {
				cancel()
			}
		}
		switch {
		case emitErr != nil:
			return emitErr
		case genErr != nil:
			return genErr
		default:
			return ctx.Err()
		}
	})
}

// Next runs markov.Model.Next on the named model.
func (r *Registry) Next(ctx context.Context, name string, improvise bool, tokens ...string) ([]markov.Candidate, error) {
	var candidates []markov.Candidate
	err := r.with(ctx, name, func(m *markov.Model) error {
		var err error
		candidates, err = m.Next(improvise, tokens...)
		return err
	})
	return candidates, err
}

// Stats returns the statistics of the named model.
func (r *Registry) Stats(ctx context.Context, name string) (markov.ModelStats, error) {
	var stats markov.ModelStats
	err := r.with(ctx, name, func(m *markov.Model) error {
		stats = m.Stats()
		return nil
	})
	return stats, err
}

// Export writes the named model as JSON to w.
func (r *Registry) Export(ctx context.Context, name string, w io.Writer) error {
	return r.with(ctx, name, func(m *markov.Model) error {
		return m.Export(w)
	})
}

// Save writes the named model to the store.
func (r *Registry) Save(ctx context.Context, name string) error {
	if r.store == nil {
		return nil
	}
	return r.with(ctx, name, func(m *markov.Model) error {
		return r.store.Save(ctx, name, m)
	})
}

// SaveAll writes every model held in memory to the store. It attempts every
// model and returns the joined errors.
func (r *Registry) SaveAll(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	r.mu.RLock()
	names := slices.Sorted(maps.Keys(r.models))
	r.mu.RUnlock()

	var errs []error
	for _, name := range names {
		if err := r.Save(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("save '%s': %w", name, err))
		}
	}
	r.logger.InfoContext(ctx, "Models saved",
		slog.Int("models", len(names)),
		slog.Int("failures", len(errs)),
	)
	return errors.Join(errs...)
}

// Remove deletes the named model from the store and then from memory. It
// waits for running operations on the model to finish; operations that were
// already waiting fail with store.ErrModelNotFound afterwards.
func (r *Registry) Remove(ctx context.Context, name string) error {
	for {
		r.mu.RLock()
		e := r.models[name]
		r.mu.RUnlock()

		done, err := r.remove(ctx, name, e)
		if done {
			if err == nil {
				r.logger.InfoContext(ctx, "Model removed", slog.String("model_name", name))
			}
			return err
		}
	}
}

// remove deletes name while holding the lock of e, which is nil when the
// model is not in memory. It reports false if the map no longer holds e, so
// the caller can retry.
func (r *Registry) remove(ctx context.Context, name string, e *entry) (bool, error) {
	if e != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.removed {
			return true, fmt.Errorf("%w: '%s'", store.ErrModelNotFound, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.models[name] != e {
		return false, nil
	}

	if r.store != nil {
		err := r.store.Remove(ctx, name)
		if err != nil && !(e != nil && errors.Is(err, store.ErrModelNotFound)) {
			return true, err
		}
	} else if e == nil {
		return true, fmt.Errorf("%w: '%s'", store.ErrModelNotFound, name)
	}

	if e != nil {
		e.removed = true
		delete(r.models, name)
	}
	return true, nil
}

// Names returns the names of every model in memory or in the store, sorted.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	names := slices.Collect(maps.Keys(r.models))
	r.mu.RUnlock()

	if r.store != nil {
		saved, err := r.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, info := range saved {
			names = append(names, info.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}
