package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCodeWalksChain(t *testing.T) {
	inner := Wrap(CodeUnauthorized, "session expired", nil)
	outer := Wrap(CodeUpstream, "fetch day failed", fmt.Errorf("records: %w", inner))

	require.True(t, IsCode(outer, CodeUpstream))
	require.True(t, IsCode(outer, CodeUnauthorized))
	require.False(t, IsCode(outer, CodeNotFound))
	require.Equal(t, CodeUpstream, CodeOf(outer))
	require.Equal(t, "fetch day failed", MessageOf(outer))
	require.Equal(t, "fetch day failed: records: session expired", outer.Error())
}

func TestMessageOfPlainError(t *testing.T) {
	require.Equal(t, "", MessageOf(nil))
	require.Equal(t, "boom", MessageOf(fmt.Errorf("boom")))
	require.Equal(t, "", CodeOf(fmt.Errorf("boom")))
}
