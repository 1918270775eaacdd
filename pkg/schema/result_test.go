package schema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettledResults(t *testing.T) {
	assert.False(t, Pass().Pending())
	assert.Equal(t, "", Pass().Code())
	assert.Equal(t, CodeMinString, Fail(CodeMinString).Code())

	boom := errors.New("boom")
	r := Error(boom)
	assert.Equal(t, CodeError, r.Code())
	assert.ErrorIs(t, r.Err(), boom)

	select {
	case <-Pass().Done():
	default:
		t.Fatal("settled results must report done")
	}
}

func TestAsyncResult(t *testing.T) {
	release := make(chan struct{})
	r := Async(func() (string, error) {
		<-release
		return "late", nil
	})
	require.True(t, r.Pending())
	assert.Equal(t, "Result{pending}", r.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	code, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", code)
	assert.NoError(t, r.Err())
}

func TestAsyncResultFaults(t *testing.T) {
	failed := Async(func() (string, error) { return "ignored", errors.New("io") })
	assert.Equal(t, CodeError, failed.Code())
	assert.EqualError(t, failed.Err(), "io")

	panicked := Async(func() (string, error) { panic("bad") })
	assert.Equal(t, CodeError, panicked.Code())
	assert.Contains(t, panicked.Err().Error(), "bad")
}

func TestThen(t *testing.T) {
	settled := Pass().Then(func(code string) Result { return Fail("next") })
	assert.False(t, settled.Pending())
	assert.Equal(t, "next", settled.Code())

	lifted := Async(func() (string, error) { return "", nil }).Then(func(code string) Result {
		if code == "" {
			return Fail("chained")
		}
		return Fail(code)
	})
	assert.True(t, lifted.Pending())
	assert.Equal(t, "chained", lifted.Code())
}

func TestThenKeepsUpstreamFault(t *testing.T) {
	boom := errors.New("boom")
	passOn := func(code string) Result { return Fail(code) }

	settled := Error(boom).Then(passOn)
	assert.Equal(t, CodeError, settled.Code())
	assert.ErrorIs(t, settled.Err(), boom)

	pending := Async(func() (string, error) { return "", boom }).Then(passOn)
	require.True(t, pending.Pending())
	assert.Equal(t, CodeError, pending.Code())
	assert.ErrorIs(t, pending.Err(), boom)

	recovered := Error(boom).Then(func(string) Result { return Pass() })
	assert.Empty(t, recovered.Code())
	assert.NoError(t, recovered.Err())
}
