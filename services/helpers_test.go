package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	"github.com/anjiri1684/logoped_crm/database"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a per-test in-memory database to avoid cross-test interference
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
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
	return db
}

func createUser(t *testing.T, db *gorm.DB, role string, branchID *uuid.UUID) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:       id,
		FullName: "User " + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Password: "x",
		Role:     role,
		BranchID: branchID,
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCompany(t *testing.T, db *gorm.DB, branches int) (models.Company, []models.Branch) {
	t.Helper()
	company := models.Company{Name: "Speech Studio"}
	require.NoError(t, db.Create(&company).Error)

	out := make([]models.Branch, 0, branches)
	for i := 0; i < branches; i++ {
		b := models.Branch{CompanyID: company.ID, Name: fmt.Sprintf("Branch %d", i+1)}
		require.NoError(t, db.Create(&b).Error)
		out = append(out, b)
	}
	return company, out
}

func addEntry(t *testing.T, db *gorm.DB, userID uuid.UUID, kind string, amount int64, at time.Time) models.Transaction {
	t.Helper()
	tx := models.Transaction{UserID: userID, Kind: kind, Amount: amount, CreatedAt: at.UTC()}
	require.NoError(t, db.Create(&tx).Error)
	return tx
}

func identityOf(u models.User) access.Identity {
	return access.Identity{UserID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T { return &v }
