package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorOr(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, int64(0), ActorOr(ctx, 0))
	assert.Equal(t, int64(9), ActorOr(ctx, 9))

	ctx = WithUser(ctx, &UserContext{UserID: 4, Roles: []string{"buyer"}})
	assert.Equal(t, int64(4), ActorOr(ctx, 0))
	assert.Equal(t, int64(9), ActorOr(ctx, 9))
	assert.True(t, HasRole(ctx, "buyer"))
	assert.False(t, HasRole(ctx, "admin"))
}

func TestNewTraceContext(t *testing.T) {
	tc := NewTraceContext("req-1")
	assert.Equal(t, "req-1", tc.RequestID)
	assert.NotEmpty(t, tc.TraceID)

	generated := NewTraceContext("")
	assert.NotEmpty(t, generated.RequestID)

	ctx := WithTrace(context.Background(), tc)
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "", GetRequestID(context.Background()))
}
