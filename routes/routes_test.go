package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/middleware"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	config.Set("JWT_SECRET", "test-secret")
	config.Set("PAYOUTS_PAGE_PATH", "/dashboard/payouts")

	// Use a per-test in-memory database to avoid cross-test interference
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	app := fiber.New()
	Register(app)
	return app, db
}

func seedUser(t *testing.T, db *gorm.DB, role string, branchID *uuid.UUID) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	id := uuid.New()
	u := models.User{
		ID:       id,
		FullName: "Test " + role,
		Email:    id.String()[:8] + "@clinic.test",
		Password: string(hash),
		Role:     role,
		BranchID: branchID,
		IsActive: true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := middleware.IssueToken(u)
	require.NoError(t, err)
	return tok
}

func doForm(t *testing.T, app *fiber.App, path, token string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func addEntry(t *testing.T, db *gorm.DB, userID uuid.UUID, kind string, amount int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Transaction{UserID: userID, Kind: kind, Amount: amount, CreatedAt: time.Now().UTC().Add(-time.Hour)}).Error)
}

func TestPayoutRequestRedirects(t *testing.T) {
	app, db := setupApp(t)
	therapist := seedUser(t, db, models.RoleLogoped, nil)
	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 10000)
	addEntry(t, db, therapist.ID, models.KindCashHeld, 2000)
	tok := tokenFor(t, therapist)

	resp := doForm(t, app, "/api/payout-request", tok, url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard/payouts?sent=1", resp.Header.Get("Location"))

	resp = doForm(t, app, "/api/payout-request", tok, url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard/payouts?pending=1", resp.Header.Get("Location"))

	var req models.PayoutRequest
	require.NoError(t, db.First(&req, "logoped_id = ?", therapist.ID).Error)
	require.Equal(t, int64(8000), req.FinalAmount)

	resp = doForm(t, app, "/api/payout-request/cancel", tok, url.Values{"requestId": {req.ID.String()}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard/payouts?cancelled=1", resp.Header.Get("Location"))

	resp = doForm(t, app, "/api/payout-request/cancel", tok, url.Values{"requestId": {"not-a-uuid"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPayoutRequestAuth(t *testing.T) {
	app, db := setupApp(t)
	parent := seedUser(t, db, models.RoleParent, nil)

	resp := doForm(t, app, "/api/payout-request", "", url.Values{})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doForm(t, app, "/api/payout-request", "garbage", url.Values{})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doForm(t, app, "/api/payout-request", tokenFor(t, parent), url.Values{})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCookieSession(t *testing.T) {
	app, db := setupApp(t)
	therapist := seedUser(t, db, models.RoleLogoped, nil)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": therapist.Email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["token"])

	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "token" {
			session = ck
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/api/payouts/my-status", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: session.Value})
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": therapist.Email, "password": "wrong-pass",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSettlementPreviewShape(t *testing.T) {
	app, db := setupApp(t)
	therapist := seedUser(t, db, models.RoleLogoped, nil)
	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 5000)
	addEntry(t, db, therapist.ID, models.KindCashHeld, 1000)
	addEntry(t, db, therapist.ID, models.KindPayout, 1500)
	tok := tokenFor(t, therapist)

	resp, body := doJSON(t, app, http.MethodGet, "/api/settlements/preview?period=all", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	totals := body["totals"].(map[string]any)
	require.Equal(t, float64(5000), totals["tshare"])
	require.Equal(t, float64(1000), totals["cashTher"])
	require.Equal(t, float64(2500), totals["net"])
	period := body["period"].(map[string]any)
	require.Nil(t, period["from"])
	require.Len(t, body["payouts"], 1)
	require.Len(t, body["settlements"], 0)
	require.Len(t, body["lessons"], 0)

	resp, body = doJSON(t, app, http.MethodGet, "/api/settlements/preview?period=month", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body["period"].(map[string]any)["from"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/settlements/preview?period=custom&from=bogus&to=2026-01-01", tok, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	colleague := seedUser(t, db, models.RoleLogoped, nil)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/settlements/preview?userId="+therapist.ID.String(), tokenFor(t, colleague), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApproveAndStatusEndpoints(t *testing.T) {
	app, db := setupApp(t)
	therapist := seedUser(t, db, models.RoleLogoped, nil)
	accountant := seedUser(t, db, models.RoleAccountant, nil)
	super := seedUser(t, db, models.RoleSuperAdmin, nil)
	addEntry(t, db, therapist.ID, models.KindTherapistBalance, 3000)
	tok := tokenFor(t, therapist)

	doForm(t, app, "/api/payout-request", tok, url.Values{})
	var req models.PayoutRequest
	require.NoError(t, db.First(&req, "logoped_id = ?", therapist.ID).Error)

	resp, body := doJSON(t, app, http.MethodGet, "/api/payouts/pending-count", tokenFor(t, super), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), body["count"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/payout-request/"+req.ID.String()+"/approve", tok, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/api/payout-request/"+req.ID.String()+"/approve", tokenFor(t, accountant), map[string]string{"note": "ok"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "approved", body["outcome"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/payout-request/"+req.ID.String()+"/reject", tokenFor(t, accountant), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/payouts/my-status", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(0), body["pending"])
	require.NotNil(t, body["lastConfirmedAt"])
}

func TestOrgGraceEndpoints(t *testing.T) {
	app, db := setupApp(t)
	company := models.Company{Name: "Studio"}
	require.NoError(t, db.Create(&company).Error)
	branch := models.Branch{CompanyID: company.ID, Name: "Main"}
	require.NoError(t, db.Create(&branch).Error)

	therapist := seedUser(t, db, models.RoleLogoped, &branch.ID)
	admin := seedUser(t, db, models.RoleAdmin, nil)
	tok := tokenFor(t, therapist)

	resp, body := doJSON(t, app, http.MethodGet, "/api/org-grace", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])
	require.Equal(t, false, body["cleared"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/org/members/"+therapist.ID.String()+"/remove", tok, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/org/members/"+therapist.ID.String()+"/remove", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, db.Model(&therapist).Update("org_grace_until", time.Now().UTC().Add(-time.Minute)).Error)
	resp, body = doJSON(t, app, http.MethodGet, "/api/org-grace", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["cleared"])

	var companies int64
	require.NoError(t, db.Model(&models.Company{}).Where("id = ?", company.ID).Count(&companies).Error)
	require.Zero(t, companies)
}

func TestLessonAndLedgerEndpoints(t *testing.T) {
	app, db := setupApp(t)
	therapist := seedUser(t, db, models.RoleLogoped, nil)
	accountant := seedUser(t, db, models.RoleAccountant, nil)
	tok := tokenFor(t, therapist)

	resp, body := doJSON(t, app, http.MethodPost, "/api/lessons", tok, map[string]any{
		"starts_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"price":     2400,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lessonID := body["id"].(string)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/lessons/"+lessonID+"/complete", tok, map[string]string{"paid_by": "GOLD"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/lessons/"+lessonID+"/complete", tok, map[string]string{"paid_by": "CARD"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/lessons/"+lessonID+"/complete", tok, map[string]string{"paid_by": "CARD"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/transactions/settlement", tok, map[string]any{
		"user_id": therapist.ID, "amount": 100,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/transactions/settlement", tokenFor(t, accountant), map[string]any{
		"user_id": therapist.ID, "amount": -300, "note": "refund",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions?period=all", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var rows []models.Transaction
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rows))
	require.Len(t, rows, 2)
}
