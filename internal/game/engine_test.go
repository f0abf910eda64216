package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/hodl-up/internal/errors"
)

// requireGameError 断言错误携带期望的错误码
func requireGameError(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, errors.GetCode(err), "错误码不匹配: %v", err)
}
