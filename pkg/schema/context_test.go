package schema

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, c *Completion) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Wait(ctx)
	require.NoError(t, err)
}

func twoFields() *Schema {
	return MustNew(Decl{
		{Name: "a", Spec: "string"},
		{Name: "b", Spec: "string"},
	})
}

func TestResetClearsMessages(t *testing.T) {
	vc := twoFields().CreateContext()
	waitFor(t, vc.Validate(map[string]any{"a": 1, "zzz": true}))
	require.False(t, vc.IsValid())

	vc.Reset()
	assert.True(t, vc.IsValid())
	assert.Empty(t, vc.GetMessages())
}

func TestValidateIsIdempotent(t *testing.T) {
	vc := twoFields().CreateContext()
	data := map[string]any{"a": "x", "b": "y"}
	for i := 0; i < 2; i++ {
		waitFor(t, vc.Validate(data))
		assert.True(t, vc.IsValid())
		assert.Empty(t, vc.GetMessages())
	}
}

func TestValidateCompletesAsynchronously(t *testing.T) {
	vc := twoFields().CreateContext()
	c := vc.Validate(map[string]any{"a": "x"})
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("synchronous validation did not complete")
	}
	assert.NoError(t, c.Err())
}

func TestNotInSchema(t *testing.T) {
	vc := twoFields().CreateContext()
	waitFor(t, vc.Validate(map[string]any{"a": "ok", "extra": 1}))
	assert.Equal(t, map[string]string{"extra": CodeNotInSchema}, vc.GetMessages())

	waitFor(t, vc.Validate(map[string]any{"a": "ok"}))
	assert.True(t, vc.IsValid(), "stale notInSchema entries are dropped")
}

func TestPartialRevalidation(t *testing.T) {
	vc := twoFields().CreateContext()
	waitFor(t, vc.Validate(map[string]any{"a": 1, "b": 2}))
	require.Equal(t, map[string]string{"a": CodeInvalidType, "b": CodeInvalidType}, vc.GetMessages())

	waitFor(t, vc.Validate(map[string]any{"a": "fixed"}, WithFields("a")))
	assert.Equal(t, map[string]string{"b": CodeInvalidType}, vc.GetMessages())

	waitFor(t, vc.Validate(map[string]any{"a": "fixed"}))
	assert.True(t, vc.IsValid(), "a full pass re-evaluates b")
}

func TestWithFieldsRejectsUnknownField(t *testing.T) {
	vc := twoFields().CreateContext()
	c := vc.Validate(map[string]any{}, WithFields("nope"))
	err := c.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))

	_, err = c.Wait(context.Background())
	assert.Error(t, err)
}

func TestRecursivePropagation(t *testing.T) {
	c := MustNew(Decl{{Name: "c", Spec: "string"}}, WithName("C"))
	b := MustNew(Decl{{Name: "b", Spec: c}}, WithName("B"))
	a := MustNew(Decl{{Name: "a", Spec: b}}, WithName("A"))

	vc := a.CreateContext()
	waitFor(t, vc.Validate(map[string]any{"a": map[string]any{"b": map[string]any{"c": 123}}}))
	assert.Equal(t, map[string]string{
		"a":     CodeInvalid,
		"a.b":   CodeInvalid,
		"a.b.c": CodeInvalidType,
	}, vc.GetMessages())

	waitFor(t, vc.Validate(map[string]any{"a": map[string]any{"b": map[string]any{"c": "ok"}}}))
	assert.Empty(t, vc.GetMessages())
}

func TestNestedPathsSurvivePartialValidation(t *testing.T) {
	inner := MustNew(Decl{{Name: "x", Spec: "integer"}})
	s := MustNew(Decl{
		{Name: "n", Spec: inner},
		{Name: "m", Spec: "string"},
	})
	vc := s.CreateContext()
	waitFor(t, vc.Validate(map[string]any{"n": map[string]any{"x": "bad"}, "m": "ok"}))
	require.Equal(t, CodeInvalidType, vc.GetMessage("n.x"))

	waitFor(t, vc.Validate(map[string]any{"m": "still ok"}, WithFields("m")))
	assert.Equal(t, map[string]string{"n": CodeInvalid, "n.x": CodeInvalidType}, vc.GetMessages())
}

func TestSetMessage(t *testing.T) {
	vc := twoFields().CreateContext()
	require.NoError(t, vc.SetMessage("a", "taken"))
	assert.Equal(t, "taken", vc.GetMessage("a"))
	assert.False(t, vc.IsValid())

	require.NoError(t, vc.SetMessage("a", ""))
	assert.True(t, vc.IsValid())
	assert.Equal(t, "", vc.GetMessage("b"))

	err := vc.SetMessage("missing", "x")
	require.Error(t, err)
	var cfg *ConfigError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, "missing", cfg.Field)
}

func TestChildPropagatesToParent(t *testing.T) {
	inner := MustNew(Decl{{Name: "b", Spec: "string"}})
	outer := MustNew(Decl{{Name: "a", Spec: inner}})

	parent := outer.CreateContext()
	child := inner.newContext(true)
	child.link(parent, "a", parent.generation("a"))

	require.NoError(t, child.SetMessage("b", "bad"))
	assert.Equal(t, CodeInvalid, parent.GetMessage("a"))

	child.Reset()
	assert.True(t, parent.IsValid())

	p, field := child.Parent()
	assert.Same(t, parent, p)
	assert.Equal(t, "a", field)

	assert.Panics(t, func() { parent.link(parent, "a", 0) })
}

func TestResetDropsPendingResults(t *testing.T) {
	release := make(chan struct{})
	s := MustNew(Decl{{Name: "a", Spec: FieldSpec{
		Type: "string",
		Custom: func(*Field, any, *Context) Result {
			return Async(func() (string, error) {
				<-release
				return "late", nil
			})
		},
	}}})

	vc := s.CreateContext()
	c := vc.Validate(map[string]any{"a": "x"})
	vc.Reset()
	close(release)
	waitFor(t, c)
	assert.True(t, vc.IsValid(), "a result of a call older than Reset must be dropped")
}

// pacedInner holds its field result for the value "slow" until release is
// closed, then reports it as "late".
func pacedInner(release <-chan struct{}) *Schema {
	return MustNew(Decl{{Name: "x", Spec: FieldSpec{
		Type: "string",
		Custom: func(_ *Field, v any, _ *Context) Result {
			if v != "slow" {
				return Pass()
			}
			return Async(func() (string, error) {
				<-release
				return "late", nil
			})
		},
	}}})
}

func TestResetDropsPendingNestedResults(t *testing.T) {
	release := make(chan struct{})
	outer := MustNew(Decl{{Name: "a", Spec: pacedInner(release)}})

	vc := outer.CreateContext()
	c := vc.Validate(map[string]any{"a": map[string]any{"x": "slow"}})
	vc.Reset()
	close(release)
	waitFor(t, c)
	assert.Empty(t, vc.GetMessages(), "a nested result older than Reset must be dropped")
}

func TestResetDropsPendingArrayElementResults(t *testing.T) {
	release := make(chan struct{})
	outer := MustNew(Decl{{Name: "items", Spec: ArrayOf(pacedInner(release))}})

	vc := outer.CreateContext()
	c := vc.Validate(map[string]any{"items": []any{map[string]any{"x": "slow"}}})
	vc.Reset()
	close(release)
	waitFor(t, c)
	assert.Empty(t, vc.GetMessages())
}

func TestNewerPassWinsOverSlowNestedPass(t *testing.T) {
	release := make(chan struct{})
	outer := MustNew(Decl{{Name: "a", Spec: pacedInner(release)}})

	vc := outer.CreateContext()
	slow := vc.Validate(map[string]any{"a": map[string]any{"x": "slow"}})
	waitFor(t, vc.Validate(map[string]any{"a": map[string]any{"x": "fast"}}))
	assert.Empty(t, vc.GetMessages())

	close(release)
	waitFor(t, slow)
	assert.Empty(t, vc.GetMessages(), "the slow pass must not overwrite the newer one")
}

func TestConcurrentValidation(t *testing.T) {
	inner := MustNew(Decl{{Name: "v", Spec: FieldSpec{Type: "integer", Min: 0}}})
	s := MustNew(Decl{
		{Name: "items", Spec: []any{inner}},
		{Name: "name", Spec: "string"},
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vc := s.CreateContext()
			waitFor(t, vc.Validate(map[string]any{
				"items": []any{map[string]any{"v": i}, map[string]any{"v": -1}},
				"name":  "x",
			}))
			assert.Equal(t, map[string]string{
				"items":     CodeInvalid,
				"items.1.v": CodeMinNumber,
			}, vc.GetMessages())
		}(i)
	}
	wg.Wait()
}

func TestGetField(t *testing.T) {
	s := MustNew(Decl{{Name: "a", Spec: "object"}})
	vc := s.CreateContext()
	assert.False(t, vc.GetField("a").Exists, "no data before the first call")

	waitFor(t, vc.Validate(map[string]any{"a": map[string]any{"b": 1}}))
	assert.Equal(t, FieldValue{Exists: true, Value: 1}, vc.GetField("a.b"))
	assert.Equal(t, FieldValue{}, vc.GetField("a.c.d"))
}

type recordingObserver struct {
	mu     sync.Mutex
	events []ValidationEvent
}

func (r *recordingObserver) OnValidated(e ValidationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestObserverSeesTopLevelOnly(t *testing.T) {
	obs := &recordingObserver{}
	inner := MustNew(Decl{{Name: "x", Spec: "string"}}, WithObserver(obs))
	outer := MustNew(Decl{{Name: "in", Spec: inner}}, WithName("outer"), WithObserver(obs))

	vc := outer.CreateContext()
	waitFor(t, vc.Validate(map[string]any{"in": map[string]any{"x": 1}}))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.events, 1)
	assert.Equal(t, "outer", obs.events[0].Schema)
	assert.False(t, obs.events[0].Valid)
	assert.Equal(t, []string{"in"}, obs.events[0].Fields)
}

func TestCheck(t *testing.T) {
	vc := twoFields().CreateContext()
	ok, err := vc.Check(context.Background(), map[string]any{"a": "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = vc.Check(context.Background(), map[string]any{"a": 5})
	require.NoError(t, err)
	assert.False(t, ok)
}
