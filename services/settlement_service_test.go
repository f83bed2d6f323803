package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestComputeSettlementAllTimeMatchesLedger(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	therapist := createUser(t, db, models.RoleLogoped, nil)
	other := createUser(t, db, models.RoleLogoped, nil)

	base := time.Now().UTC().AddDate(0, -3, 0)
	amounts := []struct {
		kind   string
		amount int64
	}{
		{models.KindTherapistBalance, 4500},
		{models.KindTherapistBalance, 3300},
		{models.KindCashHeld, 1200},
		{models.KindPayout, 2000},
		{models.KindTherapistBalance, 900},
		{models.KindSettlement, -700},
	}
	var want int64
	for i, a := range amounts {
		addEntry(t, db, therapist.ID, a.kind, a.amount, base.AddDate(0, 0, i*9))
		switch a.kind {
		case models.KindTherapistBalance:
			want += a.amount
		case models.KindCashHeld, models.KindPayout:
			want -= a.amount
		}
	}
	addEntry(t, db, other.ID, models.KindTherapistBalance, 99999, base)

	s, err := ComputeSettlement(ctx, therapist.ID, AllTime())
	require.NoError(t, err)
	require.Equal(t, want, s.Net)
	require.Equal(t, int64(8700), s.TShare)
	require.Equal(t, int64(1200), s.CashTher)
	require.Equal(t, int64(2000), s.Payouts)
	require.Len(t, s.PayoutRows, 1)
	require.Len(t, s.SettlementRows, 1)
	require.Nil(t, s.From())
}

func TestComputeSettlementWindowed(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	therapist := createUser(t, db, models.RoleLogoped, nil)

	now := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)
	p, err := ResolvePeriod(PeriodMonth, "", "", now, time.UTC)
	require.NoError(t, err)

	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 5000, time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC))
	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 3000, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	addEntry(t, db, therapist.ID, models.KindCashHeld, 1000, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	addEntry(t, db, therapist.ID, models.KindPayout, 500, time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC))
	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 7000, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	s, err := ComputeSettlement(ctx, therapist.ID, p)
	require.NoError(t, err)
	require.Equal(t, int64(3000), s.TShare)
	require.Equal(t, int64(1000), s.CashTher)
	require.Equal(t, int64(500), s.Payouts)
	require.Equal(t, int64(1500), s.Net)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *s.From())
}

func TestComputeSettlementUnknownUserIsZero(t *testing.T) {
	db := setupDB(t)
	parent := createUser(t, db, models.RoleParent, nil)
	addEntry(t, db, parent.ID, models.KindTherapistBalance, 100, time.Now())

	for _, id := range []uuid.UUID{uuid.New(), parent.ID} {
		s, err := ComputeSettlement(context.Background(), id, AllTime())
		require.NoError(t, err)
		require.Zero(t, s.Net)
		require.Zero(t, s.TShare)
		require.Empty(t, s.Lessons)
	}
}

func TestComputeSettlementLessonBreakdown(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	therapist := createUser(t, db, models.RoleLogoped, nil)
	me := identityOf(therapist)

	cashLesson, err := CreateLesson(ctx, me, LessonInput{LogopedID: therapist.ID, StartsAt: time.Now().Add(-2 * time.Hour), Price: 3000})
	require.NoError(t, err)
	cardLesson, err := CreateLesson(ctx, me, LessonInput{LogopedID: therapist.ID, StartsAt: time.Now().Add(-time.Hour), Price: 4001})
	require.NoError(t, err)

	_, err = SettleLesson(ctx, me, cashLesson.ID, models.PaidByCash)
	require.NoError(t, err)
	_, err = SettleLesson(ctx, me, cardLesson.ID, models.PaidByCard)
	require.NoError(t, err)

	s, err := ComputeSettlement(ctx, therapist.ID, AllTime())
	require.NoError(t, err)
	require.Len(t, s.Lessons, 2)

	require.Equal(t, cashLesson.ID, s.Lessons[0].LessonID)
	require.True(t, s.Lessons[0].Cash)
	require.Equal(t, int64(1500), s.Lessons[0].Share)
	require.Equal(t, int64(3000), s.Lessons[0].CashHeld)

	require.False(t, s.Lessons[1].Cash)
	require.Equal(t, int64(2001), s.Lessons[1].Share)
	require.Zero(t, s.Lessons[1].CashHeld)

	require.Equal(t, int64(3501), s.TShare)
	require.Equal(t, int64(3000), s.CashTher)
	require.Equal(t, int64(501), s.Net)
}

func TestPreviewSettlementAccess(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	therapist := createUser(t, db, models.RoleLogoped, nil)
	colleague := createUser(t, db, models.RoleLogoped, nil)
	accountant := createUser(t, db, models.RoleAccountant, nil)

	_, err := PreviewSettlement(ctx, access.Identity{}, therapist.ID, AllTime())
	require.True(t, errors.Is(err, ErrUnauthorized))

	_, err = PreviewSettlement(ctx, identityOf(colleague), therapist.ID, AllTime())
	require.True(t, errors.Is(err, ErrForbidden))

	_, err = PreviewSettlement(ctx, identityOf(accountant), therapist.ID, AllTime())
	require.NoError(t, err)

	_, err = PreviewSettlement(ctx, identityOf(therapist), therapist.ID, AllTime())
	require.NoError(t, err)
}

func TestComputeSettlementStoreFailure(t *testing.T) {
	db := setupDB(t)
	therapist := createUser(t, db, models.RoleLogoped, nil)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = ComputeSettlement(context.Background(), therapist.ID, AllTime())
	require.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestComputeSettlementWindowInOffsetZone(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	therapist := createUser(t, db, models.RoleLogoped, nil)
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Now()

	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 1000, now)
	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 700, now.Add(-3*time.Hour))
	// CreatedAt left zero so the store clock stamps it.
	require.NoError(t, db.Create(&models.Transaction{UserID: therapist.ID, Kind: models.KindCashHeld, Amount: 200}).Error)

	p, err := ResolvePeriod(PeriodCustom,
		now.In(loc).Add(-time.Hour).Format(time.RFC3339),
		now.In(loc).Add(time.Hour).Format(time.RFC3339),
		now, loc)
	require.NoError(t, err)

	s, err := ComputeSettlement(ctx, therapist.ID, p)
	require.NoError(t, err)
	require.Equal(t, int64(1000), s.TShare)
	require.Equal(t, int64(200), s.CashTher)
	require.Equal(t, int64(800), s.Net)
}
