package prompts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSource struct {
	calls  map[Role]int
	prompt Prompt
	err    error
}

func (s *countingSource) Load(role Role) (Prompt, error) {
	if s.calls == nil {
		s.calls = make(map[Role]int)
	}
	s.calls[role]++
	return s.prompt, s.err
}

type panickingSource struct{}

func (panickingSource) Load(Role) (Prompt, error) {
	panic("template exploded")
}

func builtinFor(t *testing.T, role Role) Prompt {
	t.Helper()
	p, err := Builtin{}.Load(role)
	assert.NoError(t, err)
	return p
}

func TestResolver_UsesCustomPrompt(t *testing.T) {
	custom := &countingSource{prompt: Prompt{System: "custom system", User: "custom {{.Content}}"}}
	r := NewResolver(custom, nil)

	assert.Equal(t, custom.prompt, r.Resolve(RoleIndividual))
}

func TestResolver_FallsBackSilently(t *testing.T) {
	tests := []struct {
		name   string
		source Source
	}{
		{name: "nil source", source: nil},
		{name: "missing file", source: FileSource{Dir: t.TempDir()}},
		{name: "load error", source: &countingSource{err: errors.New("broken")}},
		{name: "empty fields", source: &countingSource{prompt: Prompt{System: "only system"}}},
		{name: "panic during load", source: panickingSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			r := NewResolver(tt.source, zap.New(core))

			assert.NotPanics(t, func() {
				assert.Equal(t, builtinFor(t, RoleIndividual), r.Resolve(RoleIndividual))
				assert.Equal(t, builtinFor(t, RoleAggregate), r.Resolve(RoleAggregate))
			})

			// Fallback is reported at debug level only
			for _, entry := range logs.All() {
				assert.Equal(t, zap.DebugLevel, entry.Level)
			}
			assert.Equal(t, 2, logs.FilterMessage("using built-in prompt").Len())
		})
	}
}

func TestResolver_ResolvesOncePerRole(t *testing.T) {
	custom := &countingSource{prompt: Prompt{System: "s", User: "u"}}
	r := NewResolver(custom, zap.NewNop())

	for i := 0; i < 5; i++ {
		r.Resolve(RoleIndividual)
		r.Resolve(RoleAggregate)
	}

	assert.Equal(t, 1, custom.calls[RoleIndividual])
	assert.Equal(t, 1, custom.calls[RoleAggregate])
}

func TestResolver_CachesFallback(t *testing.T) {
	custom := &countingSource{err: errors.New("missing")}
	r := NewResolver(custom, nil)

	r.Resolve(RoleIndividual)
	r.Resolve(RoleIndividual)

	assert.Equal(t, 1, custom.calls[RoleIndividual])
}
