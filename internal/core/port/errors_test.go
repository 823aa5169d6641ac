// file: internal/core/port/errors_test.go
package port

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := NotFound("No job with ID: %d", 7)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrBadRequest))
	assert.Equal(t, "No job with ID: 7", err.Error())

	wrapped := fmt.Errorf("获取职位失败: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound), "包装后仍应按分类匹配")
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("driver: bad connection")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindInternal:     "internal",
		KindBadRequest:   "bad_request",
		KindNotFound:     "not_found",
		KindData:         "data",
		KindUnauthorized: "unauthorized",
		KindForbidden:    "forbidden",
		Kind(200):        "unknown",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}

func TestError_EmptyMessageFallsBackToKind(t *testing.T) {
	assert.Equal(t, "data", ErrData.Error())
}
