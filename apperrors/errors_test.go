package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("conversation not found")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("not a participant")))
	assert.Equal(t, KindInvalidArgument, KindOf(InvalidArgument("empty participant list")))
	assert.Equal(t, KindUnauthenticated, KindOf(Unauthenticated("no identity")))
	assert.Equal(t, KindStoreFailure, KindOf(StoreFailure("insert failed", errors.New("constraint violation"))))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("loading conversation: %w", Forbidden("not a participant"))
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestStoreFailureWrapsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := StoreFailure("creating message", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store_failure")
	assert.Contains(t, err.Error(), "creating message")
}
