package businessflow

import (
	"context"
	"testing"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/models"
	testutil "github.com/anshu-9837/Banning/testing"
	"github.com/anshu-9837/Banning/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOperator(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	op, err := h.operators.AddOperator(ctx, "98765 43210", "", models.TierAdmin, "cli")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", op.Phone)
	assert.Equal(t, "+9198765****", op.DisplayName)
	assert.Equal(t, models.TierAdmin, op.Tier)
	assert.Equal(t, models.OperatorStatusApproved, op.Status)

	stored, err := h.operatorRepo.ByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	require.NotNil(t, stored.AddedBy)
	assert.Equal(t, "cli", *stored.AddedBy)

	_, err = h.operators.AddOperator(ctx, "+91 98765 43210", "Again", models.TierUser, "")
	assert.ErrorIs(t, err, ErrOperatorExists)

	_, err = h.operators.AddOperator(ctx, "12345", "Bad", models.TierUser, "")
	assert.True(t, IsInvalidFormat(err))

	_, err = h.operators.AddOperator(ctx, "9876500000", "Bad", "owner", "")
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestUpdateOperator(t *testing.T) {
	ctx := context.Background()

	t.Run("HigherTierMayChangeLowerTier", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.fixtures.LoggedInOperator(1, models.TierSuperAdmin)
		require.NoError(t, err)
		target, err := h.fixtures.CreateOperator(testutil.NextPhone(), "Target", models.TierUser)
		require.NoError(t, err)

		out, err := h.operators.UpdateOperator(ctx, 1, target.Phone, &dto.UpdateOperatorRequest{Tier: utils.ToPtr(models.TierAdmin)})
		require.NoError(t, err)
		assert.Equal(t, models.TierAdmin, out.Tier)
		assert.Equal(t, models.OperatorStatusApproved, out.Status)
	})

	t.Run("PrivilegeIsStrict", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.fixtures.LoggedInOperator(1, models.TierAdmin)
		require.NoError(t, err)
		peer, err := h.fixtures.CreateOperator(testutil.NextPhone(), "Peer", models.TierAdmin)
		require.NoError(t, err)
		user, err := h.fixtures.CreateOperator(testutil.NextPhone(), "User", models.TierUser)
		require.NoError(t, err)

		_, err = h.operators.UpdateOperator(ctx, 1, peer.Phone, &dto.UpdateOperatorRequest{Status: utils.ToPtr(models.OperatorStatusRevoked)})
		assert.True(t, IsInsufficientTier(err), "equal tier is not enough")

		_, err = h.operators.UpdateOperator(ctx, 1, user.Phone, &dto.UpdateOperatorRequest{Tier: utils.ToPtr(models.TierAdmin)})
		assert.True(t, IsInsufficientTier(err), "cannot promote to own tier")

		stored, err := h.operatorRepo.ByPhone(ctx, user.Phone)
		require.NoError(t, err)
		assert.Equal(t, models.TierUser, stored.Tier)
	})

	t.Run("RequiresSession", func(t *testing.T) {
		h := newHarness(t)
		target, err := h.fixtures.CreateOperator(testutil.NextPhone(), "Target", models.TierUser)
		require.NoError(t, err)

		_, err = h.operators.UpdateOperator(ctx, 42, target.Phone, &dto.UpdateOperatorRequest{Tier: utils.ToPtr(models.TierUser)})
		assert.True(t, IsNotLoggedIn(err))
	})

	t.Run("Validation", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.fixtures.LoggedInOperator(1, models.TierSuperAdmin)
		require.NoError(t, err)

		_, err = h.operators.UpdateOperator(ctx, 1, "9876543210", &dto.UpdateOperatorRequest{})
		assert.ErrorIs(t, err, ErrNothingToUpdate)
		_, err = h.operators.UpdateOperator(ctx, 1, "9876543210", &dto.UpdateOperatorRequest{Tier: utils.ToPtr("root")})
		assert.ErrorIs(t, err, ErrInvalidTier)
		_, err = h.operators.UpdateOperator(ctx, 1, "9876543210", &dto.UpdateOperatorRequest{Status: utils.ToPtr("paused")})
		assert.ErrorIs(t, err, ErrInvalidStatus)
		_, err = h.operators.UpdateOperator(ctx, 1, "9876543210", &dto.UpdateOperatorRequest{Tier: utils.ToPtr(models.TierUser)})
		assert.True(t, IsOperatorNotFound(err))
	})

	t.Run("RevokeEndsSessionsAndBlocksLogin", func(t *testing.T) {
		h := newHarness(t)
		op, _, err := h.fixtures.LoggedInOperator(7, models.TierUser)
		require.NoError(t, err)

		out, err := h.operators.ForceUpdateOperator(ctx, op.Phone, &dto.UpdateOperatorRequest{Status: utils.ToPtr(models.OperatorStatusRevoked)})
		require.NoError(t, err)
		assert.Equal(t, models.OperatorStatusRevoked, out.Status)

		_, err = h.auth.CurrentSession(ctx, 7)
		assert.True(t, IsNotLoggedIn(err))

		_, err = h.auth.RequestCode(ctx, &dto.RequestCodeRequest{Phone: op.Phone}, nil)
		assert.True(t, IsPhoneNotApproved(err))

		out, err = h.operators.ForceUpdateOperator(ctx, op.Phone, &dto.UpdateOperatorRequest{Status: utils.ToPtr(models.OperatorStatusApproved)})
		require.NoError(t, err)
		assert.Equal(t, models.OperatorStatusApproved, out.Status)
		_, err = h.auth.RequestCode(ctx, &dto.RequestCodeRequest{Phone: op.Phone}, nil)
		assert.NoError(t, err)
	})
}
