package transaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommitOutsideTransactionRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommitWaitsForRun(t *testing.T) {
	ctx, hooks := WithHooks(context.Background())

	var order []int
	AfterCommit(ctx, func() { order = append(order, 1) })
	AfterCommit(ctx, func() { order = append(order, 2) })
	assert.Empty(t, order)

	hooks.Run()
	assert.Equal(t, []int{1, 2}, order)

	hooks.Run()
	assert.Equal(t, []int{1, 2}, order, "hooks run once")
}
