package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestGalleryService_ListImages(t *testing.T) {
	t.Run("serves cached listing", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewGalleryService(db, redisClient)

		cached := `{"images":[{"id":"img-1","title":"Studio"}]}`
		redisMock.ExpectGet(galleryCacheKey).SetVal(cached)

		r := httptest.NewRequest("GET", "/api/v1/gallery", nil)
		w := httptest.NewRecorder()

		service.ListImages(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, cached, w.Body.String())
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("reads database in display order without a cache", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewGalleryService(db, nil)

		dbMock.ExpectQuery("SELECT id, title, description, image_url, display_order, created_at").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "image_url", "display_order", "created_at"}).
				AddRow("img-1", "Studio", "Console desk", "https://img.example.com/studio.jpg", 0, time.Now()).
				AddRow("img-2", "Stage", "Live set", "https://img.example.com/stage.jpg", 1, time.Now()))

		r := httptest.NewRequest("GET", "/api/v1/gallery", nil)
		w := httptest.NewRecorder()

		service.ListImages(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Stage")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestGalleryService_AddImage(t *testing.T) {
	t.Run("inserts image and invalidates cache", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewGalleryService(db, redisClient)

		dbMock.ExpectExec("INSERT INTO gallery_images").
			WithArgs(sqlmock.AnyArg(), "Studio", "Console desk", "https://img.example.com/studio.jpg", 2, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		redisMock.ExpectDel(galleryCacheKey).SetVal(1)

		body := bytes.NewBufferString(`{"title":"Studio","description":"Console desk","imageUrl":"https://img.example.com/studio.jpg","displayOrder":2}`)
		r := httptest.NewRequest("POST", "/api/v1/admin/gallery", body)
		w := httptest.NewRecorder()

		service.AddImage(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp["id"])
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("rejects missing image url", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewGalleryService(db, nil)

		body := bytes.NewBufferString(`{"title":"Studio"}`)
		r := httptest.NewRequest("POST", "/api/v1/admin/gallery", body)
		w := httptest.NewRecorder()

		service.AddImage(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestGalleryService_DeleteImage(t *testing.T) {
	t.Run("deletes and invalidates cache", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewGalleryService(db, redisClient)

		dbMock.ExpectExec("DELETE FROM gallery_images").
			WithArgs("img-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		redisMock.ExpectDel(galleryCacheKey).SetVal(1)

		r := httptest.NewRequest("DELETE", "/api/v1/admin/gallery/img-1", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("imageId", "img-1")
		r = r.WithContext(contextWithRouteCtx(r, rctx))
		w := httptest.NewRecorder()

		service.DeleteImage(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("unknown image", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewGalleryService(db, nil)

		dbMock.ExpectExec("DELETE FROM gallery_images").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		r := httptest.NewRequest("DELETE", "/api/v1/admin/gallery/missing", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("imageId", "missing")
		r = r.WithContext(contextWithRouteCtx(r, rctx))
		w := httptest.NewRecorder()

		service.DeleteImage(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
