package webhook_log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/contactbook/pkg/types"
)

func TestSave_NilIsNoop(t *testing.T) {
	svc := New(nil, zap.NewNop().Sugar())
	require.NoError(t, svc.Save(t.Context(), nil))
}

func TestScanRequestNormalize(t *testing.T) {
	req := &ScanRequest{From: -3, Size: 5000}
	require.NoError(t, req.Normalize())
	assert.Equal(t, 0, req.From)
	assert.Equal(t, 200, req.Size)

	req = &ScanRequest{}
	require.NoError(t, req.Normalize())
	assert.Equal(t, 20, req.Size)
}

func TestScanRequestNormalize_RejectsUnknownField(t *testing.T) {
	req := &ScanRequest{Filters: []*types.CommonFilter{{
		Field: "data; drop table", Operator: types.CommonFilterOperatorEq, Values: []any{"x"},
	}}}
	require.ErrorIs(t, req.Normalize(), types.ErrInvalidArgument)

	req = &ScanRequest{Filters: []*types.CommonFilter{{
		Field: "status", Operator: types.CommonFilterOperatorEq, Values: []any{"unmatched"},
	}}}
	require.NoError(t, req.Normalize())
}
