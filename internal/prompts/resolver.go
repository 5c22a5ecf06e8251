package prompts

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Resolver hands out one prompt pair per role for the lifetime of a run.
// A custom source is tried first; any failure (missing file, malformed
// YAML, empty fields, a panic inside the source) silently selects the
// built-in pair. Create one Resolver per run.
type Resolver struct {
	custom  Source
	builtin Source
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[Role]Prompt
}

// NewResolver creates a resolver. custom may be nil to always use the built-in pair.
func NewResolver(custom Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		custom:  custom,
		builtin: Builtin{},
		logger:  logger,
		cache:   make(map[Role]Prompt),
	}
}

// Resolve returns the prompt pair for role. It never fails.
func (r *Resolver) Resolve(role Role) Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt, ok := r.cache[role]; ok {
		return prompt
	}

	prompt, err := r.loadCustom(role)
	if err != nil {
		r.logger.Debug("using built-in prompt",
			zap.String("role", string(role)),
			zap.Error(err))
		prompt, _ = r.builtin.Load(role)
	}

	r.cache[role] = prompt
	return prompt
}

func (r *Resolver) loadCustom(role Role) (prompt Prompt, err error) {
	if r.custom == nil {
		return Prompt{}, fmt.Errorf("no custom prompt source")
	}

	defer func() {
		if rec := recover(); rec != nil {
			prompt = Prompt{}
			err = fmt.Errorf("prompt source panicked: %v", rec)
		}
	}()

	prompt, err = r.custom.Load(role)
	if err != nil {
		return Prompt{}, err
	}
	if err := prompt.Validate(); err != nil {
		return Prompt{}, err
	}
	return prompt, nil
}
