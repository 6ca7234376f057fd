package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/soundvault/backend/internal/middleware"
	"github.com/soundvault/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEntitlementService_HasPurchased(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewEntitlementService(db)

	t.Run("purchase exists", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM purchases").
			WithArgs("acct-1", "album-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("purchase-1"))

		purchased, err := service.HasPurchased(context.Background(), "acct-1", "album-1")
		assert.NoError(t, err)
		assert.True(t, purchased)
	})

	t.Run("no purchase", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM purchases").
			WithArgs("acct-2", "album-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		purchased, err := service.HasPurchased(context.Background(), "acct-2", "album-1")
		assert.NoError(t, err)
		assert.False(t, purchased)
	})

	t.Run("lookup failure", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM purchases").
			WithArgs("acct-1", "album-1").
			WillReturnError(assert.AnError)

		_, err := service.HasPurchased(context.Background(), "acct-1", "album-1")
		assert.Error(t, err)
	})
}

func TestEntitlementService_RecordPurchase(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewEntitlementService(db)

	mock.ExpectExec("INSERT INTO purchases").
		WithArgs(sqlmock.AnyArg(), "acct-1", "album-1", "pi_abc123", 9.99, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	purchase := &models.Purchase{
		AccountID:        "acct-1",
		AlbumID:          "album-1",
		PaymentReference: "pi_abc123",
		Amount:           9.99,
	}
	err = service.RecordPurchase(context.Background(), purchase)

	assert.NoError(t, err)
	assert.NotEmpty(t, purchase.ID)
	assert.WithinDuration(t, time.Now(), purchase.CreatedAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntitlementService_ListPurchases(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewEntitlementService(db)

	t.Run("unauthenticated", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/purchases", nil)
		w := httptest.NewRecorder()

		service.ListPurchases(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lists account purchases", func(t *testing.T) {
		mock.ExpectQuery("SELECT p.id, p.album_id, a.title, a.artist").
			WithArgs("acct-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "album_id", "title", "artist", "cover_image_url", "amount", "created_at"}).
				AddRow("purchase-1", "album-1", "Night Drive", "The Waveforms", "https://img.example.com/cover.jpg", 9.99, time.Now()))

		r := httptest.NewRequest("GET", "/api/v1/purchases", nil)
		r = r.WithContext(middleware.WithAccount(r.Context(), middleware.Account{ID: "acct-1"}))
		w := httptest.NewRecorder()

		service.ListPurchases(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Night Drive")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
