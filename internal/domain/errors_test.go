package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{Validationf("bad input"), KindValidation},
		{NotFoundf("auction %s not found", "a1"), KindNotFound},
		{Forbiddenf("not the owner"), KindForbidden},
		{Closedf("auction is closed"), KindClosed},
		{BidTooLowf("must exceed %.2f", 150.0), KindBidTooLow},
		{InvalidAmountf("not finite"), KindInvalidAmount},
		{Conflictf("already exists"), KindConflict},
		{StorageErr(errors.New("connection refused"), "failed to load"), KindStorage},
	}

	for _, tt := range tests {
		require.Equal(t, tt.kind, KindOf(tt.err))
		require.True(t, IsKind(tt.err, tt.kind))
		require.True(t, errors.Is(tt.err, ErrOfKind(tt.kind)))
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("facade: %w", BidTooLowf("must exceed 150"))
	require.True(t, IsKind(err, KindBidTooLow))
	require.Equal(t, KindBidTooLow, KindOf(err))
	require.Equal(t, "must exceed 150", ReasonOf(err))
}

func TestStorageErrPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := StorageErr(cause, "failed to load auction")
	require.ErrorIs(t, err, cause)
	require.Equal(t, "failed to load auction", ReasonOf(err))
}

func TestUnclassifiedErrorsDefaultToStorage(t *testing.T) {
	require.Equal(t, KindStorage, KindOf(errors.New("boom")))
}
