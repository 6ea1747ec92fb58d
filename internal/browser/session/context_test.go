package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCombineContextCancelsWithSecondary(t *testing.T) {
	defer goleak.VerifyNone(t)

	primary := context.Background()
	secondary, cancelSecondary := context.WithCancel(context.Background())

	combined, cancel := CombineContext(primary, secondary)
	defer cancel()

	assert.NoError(t, combined.Err())
	cancelSecondary()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context did not cancel with the secondary")
	}
}

func TestCombineContextCancelsWithPrimary(t *testing.T) {
	defer goleak.VerifyNone(t)

	primary, cancelPrimary := context.WithCancel(context.Background())
	combined, cancel := CombineContext(primary, context.Background())
	defer cancel()

	cancelPrimary()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context did not cancel with the primary")
	}
}

type ctxKey string

func TestCombineContextInheritsPrimaryValues(t *testing.T) {
	defer goleak.VerifyNone(t)

	primary := context.WithValue(context.Background(), ctxKey("k"), "v")
	combined, cancel := CombineContext(primary, context.Background())
	defer cancel()

	assert.Equal(t, "v", combined.Value(ctxKey("k")))
}

func TestDetachSurvivesParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(
		context.WithValue(context.Background(), ctxKey("k"), "v"))
	detached := Detach(parent)

	cancel()

	require.Error(t, parent.Err())
	assert.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	assert.Equal(t, "v", detached.Value(ctxKey("k")))

	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
}
