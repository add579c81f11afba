package wallet

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, balance string) *models.User {
	t.Helper()
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		t.Fatalf("parsing balance: %v", err)
	}
	user := &models.User{
		Email:         uuid.NewString() + "@example.com",
		Name:          "Test Shopper",
		WalletBalance: amount,
		IsActive:      true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func reloadBalance(t *testing.T, conn *gorm.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	var user models.User
	if err := conn.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	return user.WalletBalance
}

func TestCreditIncreasesBalance(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn, "100.00")

	if err := NewLedger().Credit(conn, user.ID, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := reloadBalance(t, conn, user.ID); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("balance = %s, want 150", got)
	}
}

func TestDebitFailsClosedOnInsufficientFunds(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn, "30.00")

	err := NewLedger().Debit(conn, user.ID, decimal.NewFromInt(31))
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if got := reloadBalance(t, conn, user.ID); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("balance changed on failed debit: %s", got)
	}
}

func TestDebitExactBalanceSucceeds(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn, "75.50")

	if err := NewLedger().Debit(conn, user.ID, decimal.RequireFromString("75.50")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := reloadBalance(t, conn, user.ID); !got.IsZero() {
		t.Fatalf("balance = %s, want 0", got)
	}
}

func TestDebitUpToClampsToBalance(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn, "40.00")

	debited, err := NewLedger().DebitUpTo(conn, user.ID, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debited.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("debited = %s, want 40", debited)
	}
	if got := reloadBalance(t, conn, user.ID); !got.IsZero() {
		t.Fatalf("balance = %s, want 0", got)
	}
}

func TestDebitUpToTakesFullAmountWhenFunded(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn, "500.00")

	debited, err := NewLedger().DebitUpTo(conn, user.ID, decimal.NewFromInt(120))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debited.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("debited = %s, want 120", debited)
	}
	if got := reloadBalance(t, conn, user.ID); !got.Equal(decimal.NewFromInt(380)) {
		t.Fatalf("balance = %s, want 380", got)
	}
}

func TestDebitUpToZeroBalanceDebitsNothing(t *testing.T) {
	conn := newTestDB(t)
	user := seedUser(t, conn, "0.00")

	debited, err := NewLedger().DebitUpTo(conn, user.ID, decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !debited.IsZero() {
		t.Fatalf("debited = %s, want 0", debited)
	}
}
