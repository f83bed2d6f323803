package services

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LessonLine struct {
	LessonID uuid.UUID `json:"lesson_id"`
	StartsAt time.Time `json:"starts_at"`
	Price    int64     `json:"price"`
	PaidBy   string    `json:"paid_by"`
	Cash     bool      `json:"cash"`
	Share    int64     `json:"share"`
	CashHeld int64     `json:"cash_held"`
}

// Settlement is a point-in-time view of one therapist's ledger over a period.
type Settlement struct {
	Period   Period
	Lessons  []LessonLine
	TShare   int64
	CashTher int64
	Payouts  int64
	Net      int64

	PayoutRows     []models.Transaction
	SettlementRows []models.Transaction
}

func (s Settlement) From() *time.Time {
	if !s.Period.Bounded() {
		return nil
	}
	return &s.Period.From
}

func (s Settlement) To() *time.Time {
	if !s.Period.Bounded() {
		return nil
	}
	return &s.Period.To
}

// Balance holds the signed totals per kind that feed a payout.
type Balance struct {
	TShare      int64
	CashHeld    int64
	Payouts     int64
	Adjustments int64
}

func (b Balance) Net() int64 { return b.TShare - b.CashHeld - b.Payouts }

func emptySettlement(p Period) Settlement {
	return Settlement{Period: p, Lessons: []LessonLine{}, PayoutRows: []models.Transaction{}, SettlementRows: []models.Transaction{}}
}

// withSnapshot runs fn in a read-only transaction so every query of one aggregation sees
// the same ledger state.
func withSnapshot(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var opts *sql.TxOptions
	if db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return db.WithContext(ctx).Transaction(fn, opts)
}

func scopePeriod(q *gorm.DB, p Period) *gorm.DB {
	if !p.Bounded() {
		return q
	}
	return q.Where("created_at >= ? AND created_at < ?", p.From.UTC(), p.To.UTC())
}

// sumByKind returns the total of every ledger kind for userID inside p.
func sumByKind(tx *gorm.DB, userID uuid.UUID, p Period) (Balance, error) {
	var rows []struct {
		Kind  string
		Total int64
	}
	q := tx.Model(&models.Transaction{}).
		Select("kind, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").
		Where("user_id = ?", userID)
	if err := scopePeriod(q, p).Group("kind").Scan(&rows).Error; err != nil {
		return Balance{}, err
	}

	var b Balance
	for _, r := range rows {
		switch r.Kind {
		case models.KindTherapistBalance:
			b.TShare = r.Total
		case models.KindCashHeld:
			b.CashHeld = r.Total
		case models.KindPayout:
			b.Payouts = r.Total
		case models.KindSettlement:
			b.Adjustments = r.Total
		}
	}
	return b, nil
}

func loadTherapist(tx *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := tx.First(&user, "id = ? AND role = ?", userID, models.RoleLogoped).Error
	if isRecordNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ComputeSettlement aggregates the therapist's ledger inside p. It never writes. An unknown
// user or a user who is not a therapist yields a zeroed settlement.
func ComputeSettlement(ctx context.Context, userID uuid.UUID, p Period) (Settlement, error) {
	result := emptySettlement(p)

	err := withSnapshot(ctx, database.DB, func(tx *gorm.DB) error {
		user, err := loadTherapist(tx, userID)
		if err != nil || user == nil {
			return err
		}

		totals, err := sumByKind(tx, userID, p)
		if err != nil {
			return err
		}
		result.TShare = totals.TShare
		result.CashTher = totals.CashHeld
		result.Payouts = totals.Payouts
		result.Net = totals.Net()

		var rows []models.Transaction
		q := tx.Where("user_id = ? AND kind IN ?", userID, []string{
			models.KindTherapistBalance, models.KindCashHeld, models.KindPayout, models.KindSettlement,
		})
		if err := scopePeriod(q, p).Order("created_at asc").Find(&rows).Error; err != nil {
			return err
		}

		lines, err := lessonLines(tx, rows)
		if err != nil {
			return err
		}
		result.Lessons = lines

		for _, row := range rows {
			switch row.Kind {
			case models.KindPayout:
				result.PayoutRows = append(result.PayoutRows, row)
			case models.KindSettlement:
				result.SettlementRows = append(result.SettlementRows, row)
			}
		}
		return nil
	})
	if err != nil {
		return emptySettlement(p), storeErr("compute settlement", err)
	}
	return result, nil
}

// lessonLines builds the per-lesson audit breakdown from THERAPIST_BALANCE rows and the
// CASH_HELD rows of the same lessons.
func lessonLines(tx *gorm.DB, rows []models.Transaction) ([]LessonLine, error) {
	shares := map[uuid.UUID]int64{}
	cash := map[uuid.UUID]int64{}
	var ids []uuid.UUID
	for _, row := range rows {
		if row.LessonID == nil {
			continue
		}
		switch row.Kind {
		case models.KindTherapistBalance:
			if _, seen := shares[*row.LessonID]; !seen {
				ids = append(ids, *row.LessonID)
			}
			shares[*row.LessonID] += row.Amount
		case models.KindCashHeld:
			cash[*row.LessonID] += row.Amount
		}
	}
	if len(ids) == 0 {
		return []LessonLine{}, nil
	}

	var lessons []models.Lesson
	if err := tx.Where("id IN ?", ids).Find(&lessons).Error; err != nil {
		return nil, err
	}

	lines := make([]LessonLine, 0, len(lessons))
	for _, l := range lessons {
		lines = append(lines, LessonLine{
			LessonID: l.ID,
			StartsAt: l.StartsAt,
			Price:    l.PriceMinor,
			PaidBy:   l.PaidBy,
			Cash:     l.PaidInCash(),
			Share:    shares[l.ID],
			CashHeld: cash[l.ID],
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].StartsAt.Before(lines[j].StartsAt) })
	return lines, nil
}

// PreviewSettlement is ComputeSettlement behind the owner-or-operator check.
func PreviewSettlement(ctx context.Context, actor access.Identity, userID uuid.UUID, p Period) (Settlement, error) {
	if err := authorize(actor, access.OwnerOr(userID, access.PayoutOperators...)); err != nil {
		return emptySettlement(p), err
	}
	return ComputeSettlement(ctx, userID, p)
}

// LedgerBalance returns the all-time totals for userID using tx.
func LedgerBalance(tx *gorm.DB, userID uuid.UUID) (Balance, error) {
	return sumByKind(tx, userID, AllTime())
}
