package businessflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/anshu-9837/Banning/app/dto"
	"github.com/anshu-9837/Banning/models"
	testutil "github.com/anshu-9837/Banning/testing"
	"github.com/anshu-9837/Banning/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRequestCode(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidPhone", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.auth.RequestCode(ctx, &dto.RequestCodeRequest{Phone: "12345"}, nil)
		assert.True(t, IsInvalidFormat(err))
	})

	t.Run("UnknownPhone", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.auth.RequestCode(ctx, &dto.RequestCodeRequest{Phone: "9876500000"}, nil)
		assert.True(t, IsPhoneNotApproved(err))
		assert.Empty(t, h.sms.GetSentMessages())
	})

	t.Run("RevokedOperator", func(t *testing.T) {
		h := newHarness(t)
		phone := testutil.NextPhone()
		_, err := h.fixtures.CreateOperator(phone, "Revoked", models.TierUser)
		require.NoError(t, err)
		_, err = h.operatorRepo.UpdateTierAndStatus(ctx, phone, nil, utils.ToPtr(models.OperatorStatusRevoked))
		require.NoError(t, err)

		_, err = h.auth.RequestCode(ctx, &dto.RequestCodeRequest{Phone: phone}, nil)
		assert.True(t, IsPhoneNotApproved(err))
	})

	t.Run("IssuesHashedCode", func(t *testing.T) {
		h := newHarness(t)
		phone := testutil.NextPhone()
		_, err := h.fixtures.CreateOperator(phone, "Asha", models.TierAdmin)
		require.NoError(t, err)

		resp, err := h.auth.RequestCode(ctx, &dto.RequestCodeRequest{Phone: phone[3:]}, NewClientMetadata("10.0.0.1", "test"))
		require.NoError(t, err)
		assert.Equal(t, phone[:8]+"****", resp.MaskedPhone)
		assert.Equal(t, 300, resp.ExpiresIn)

		code := h.sentCode(t, phone)
		assert.GreaterOrEqual(t, code, "100000")

		stored, err := h.codeRepo.LatestByPhone(ctx, phone, false)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.NotEqual(t, code, stored.CodeHash)
		assert.Equal(t, 0, stored.Attempts)
		assert.WithinDuration(t, stored.CreatedAt.Add(5*time.Minute), stored.ExpiresAt, time.Second)

		logs, err := h.loginLogRepo.ByFilter(ctx, models.LoginLogFilter{Phone: &phone}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.LoginActionCodeRequested, logs[0].Action)
		require.NotNil(t, logs[0].IPAddress)
		assert.Equal(t, "10.0.0.1", *logs[0].IPAddress)
	})
}

func TestVerifyAndLogin(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*harness, string) {
		h := newHarness(t)
		phone := testutil.NextPhone()
		_, err := h.fixtures.CreateOperator(phone, "Asha", models.TierAdmin)
		require.NoError(t, err)
		return h, phone
	}

	verify := func(h *harness, phone, code string, actorID int64) (*dto.VerifyCodeResponse, error) {
		return h.auth.VerifyAndLogin(ctx, &dto.VerifyCodeRequest{Phone: phone, Code: code, ActorID: actorID, ActorName: "asha_tg"}, nil)
	}

	t.Run("Success", func(t *testing.T) {
		h, phone := setup(t)
		_, err := h.auth.RequestCode(ctx, &dto.RequestCodeRequest{Phone: phone}, nil)
		require.NoError(t, err)

		resp, err := verify(h, phone, h.sentCode(t, phone), 42)
		require.NoError(t, err)
		assert.Equal(t, "Asha", resp.DisplayName)
		assert.Equal(t, models.TierAdmin, resp.Tier)
		assert.Equal(t, MaskPhone(phone), resp.MaskedPhone)
		assert.True(t, strings.HasPrefix(resp.SessionToken, "SESS"))
		assert.Len(t, resp.SessionToken, 22)

		claims, err := h.tokens.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.ActorID)
		assert.Equal(t, resp.SessionToken, claims.SessionToken)

		exists, err := h.codeRepo.Exists(ctx, models.OneTimeCodeFilter{Phone: &phone})
		require.NoError(t, err)
		assert.False(t, exists, "codes are deleted after a successful login")

		session, err := h.auth.CurrentSession(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "asha_tg", session.ActorName)
		assert.Equal(t, models.LanguageHindi, session.Language)
	})

	t.Run("NoCode", func(t *testing.T) {
		h, phone := setup(t)
		_, err := verify(h, phone, "123456", 1)
		assert.True(t, IsNoCodeFound(err))
	})

	t.Run("Expired", func(t *testing.T) {
		h, phone := setup(t)
		_, err := h.fixtures.CreateCode(phone, "123456", utils.UTCNow().Add(-10*time.Minute), 5*time.Minute)
		require.NoError(t, err)

		_, err = verify(h, phone, "123456", 1)
		assert.True(t, IsExpired(err))
	})

	t.Run("AttemptsAreLimited", func(t *testing.T) {
		h, phone := setup(t)
		_, err := h.fixtures.CreateCode(phone, "123456", utils.UTCNow(), 5*time.Minute)
		require.NoError(t, err)

		for range 3 {
			_, err = verify(h, phone, "654321", 1)
			assert.True(t, IsInvalidCode(err))
		}

		_, err = verify(h, phone, "123456", 1)
		assert.True(t, IsMaxAttemptsExceeded(err), "the correct code is refused once attempts are exhausted")

		stored, err := h.codeRepo.LatestByPhone(ctx, phone, false)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Attempts)

		failed, err := h.loginLogRepo.Count(ctx, models.LoginLogFilter{Phone: &phone, Action: utils.ToPtr(models.LoginActionFailed)})
		require.NoError(t, err)
		assert.Equal(t, int64(4), failed)
	})

	t.Run("ConcurrentGuessesCannotBypassLimit", func(t *testing.T) {
		h, phone := setup(t)
		_, err := h.fixtures.CreateCode(phone, "123456", utils.UTCNow(), 5*time.Minute)
		require.NoError(t, err)

		var g errgroup.Group
		for range 10 {
			g.Go(func() error {
				_, err := verify(h, phone, "000000", 7)
				if IsInvalidCode(err) || IsMaxAttemptsExceeded(err) {
					return nil
				}
				return err
			})
		}
		require.NoError(t, g.Wait())

		stored, err := h.codeRepo.LatestByPhone(ctx, phone, false)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Attempts)
	})

	t.Run("LatestCodeSupersedesOlder", func(t *testing.T) {
		h, phone := setup(t)
		now := utils.UTCNow()
		_, err := h.fixtures.CreateCode(phone, "111111", now.Add(-time.Minute), 5*time.Minute)
		require.NoError(t, err)
		_, err = h.fixtures.CreateCode(phone, "222222", now, 5*time.Minute)
		require.NoError(t, err)

		_, err = verify(h, phone, "111111", 1)
		assert.True(t, IsInvalidCode(err))

		count, err := h.codeRepo.Count(ctx, models.OneTimeCodeFilter{Phone: &phone})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count, "older codes stay stored")

		_, err = verify(h, phone, "222222", 1)
		require.NoError(t, err)
	})

	t.Run("RevokedAfterCodeIssued", func(t *testing.T) {
		h, phone := setup(t)
		_, err := h.fixtures.CreateCode(phone, "123456", utils.UTCNow(), 5*time.Minute)
		require.NoError(t, err)
		_, err = h.operatorRepo.UpdateTierAndStatus(ctx, phone, nil, utils.ToPtr(models.OperatorStatusRevoked))
		require.NoError(t, err)

		_, err = verify(h, phone, "123456", 1)
		assert.True(t, IsOperatorNotFound(err))
	})

	t.Run("NewLoginSupersedesSessions", func(t *testing.T) {
		h, phone := setup(t)

		_, err := h.fixtures.CreateCode(phone, "123456", utils.UTCNow(), 5*time.Minute)
		require.NoError(t, err)
		first, err := verify(h, phone, "123456", 100)
		require.NoError(t, err)

		_, err = h.fixtures.CreateCode(phone, "123457", utils.UTCNow(), 5*time.Minute)
		require.NoError(t, err)
		second, err := verify(h, phone, "123457", 200)
		require.NoError(t, err)
		assert.NotEqual(t, first.SessionToken, second.SessionToken)

		_, err = h.auth.CurrentSession(ctx, 100)
		assert.True(t, IsNotLoggedIn(err), "same phone on a new actor ends the old session")

		active, err := h.sessionRepo.Count(ctx, models.SessionFilter{Phone: &phone, IsActive: utils.ToPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), active)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	resp, err := h.auth.Logout(ctx, 5, nil)
	require.NoError(t, err)
	assert.False(t, resp.LoggedOut)

	_, session, err := h.fixtures.LoggedInOperator(5, models.TierUser)
	require.NoError(t, err)

	resp, err = h.auth.Logout(ctx, 5, nil)
	require.NoError(t, err)
	assert.True(t, resp.LoggedOut)

	_, err = h.auth.CurrentSession(ctx, 5)
	assert.True(t, IsNotLoggedIn(err))

	logs, err := h.loginLogRepo.ByFilter(ctx, models.LoginLogFilter{Phone: &session.Phone}, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.LoginActionLogout, logs[0].Action)

	resp, err = h.auth.Logout(ctx, 5, nil)
	require.NoError(t, err)
	assert.False(t, resp.LoggedOut)
}

func TestSessionIdleExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	op, err := h.fixtures.CreateOperator(testutil.NextPhone(), "Idle", models.TierUser)
	require.NoError(t, err)
	_, err = h.fixtures.CreateSession(op, 9, utils.UTCNow().Add(-25*time.Hour))
	require.NoError(t, err)

	_, err = h.auth.CurrentSession(ctx, 9)
	assert.True(t, IsNotLoggedIn(err))

	_, err = h.auth.CurrentSession(ctx, 9)
	assert.True(t, IsNotLoggedIn(err))

	t.Run("SweepExpiresIdleSessions", func(t *testing.T) {
		other, err := h.fixtures.CreateOperator(testutil.NextPhone(), "Sweep", models.TierUser)
		require.NoError(t, err)
		_, err = h.fixtures.CreateSession(other, 10, utils.UTCNow().Add(-48*time.Hour))
		require.NoError(t, err)
		_, _, err = h.fixtures.LoggedInOperator(11, models.TierUser)
		require.NoError(t, err)

		n, err := h.auth.ExpireIdleSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = h.auth.CurrentSession(ctx, 11)
		assert.NoError(t, err)
	})
}

func TestSetLanguage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _, err := h.fixtures.LoggedInOperator(3, models.TierUser)
	require.NoError(t, err)

	_, err = h.auth.SetLanguage(ctx, 3, &dto.UpdateLanguageRequest{Language: "fr"})
	assert.ErrorIs(t, err, ErrInvalidLanguage)

	info, err := h.auth.SetLanguage(ctx, 3, &dto.UpdateLanguageRequest{Language: models.LanguageEnglish})
	require.NoError(t, err)
	assert.Equal(t, models.LanguageEnglish, info.Language)

	session, err := h.auth.CurrentSession(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.LanguageEnglish, session.Language)

	_, err = h.auth.SetLanguage(ctx, 4, &dto.UpdateLanguageRequest{Language: models.LanguageEnglish})
	assert.True(t, IsNotLoggedIn(err))
}
