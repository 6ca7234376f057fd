package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestCatalogService_ListAlbums(t *testing.T) {
	t.Run("serves cached listing without touching the database", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewCatalogService(db, redisClient)

		cached := `{"albums":[{"id":"album-1","title":"Night Drive"}]}`
		redisMock.ExpectGet(albumsCacheKey).SetVal(cached)

		r := httptest.NewRequest("GET", "/api/v1/albums", nil)
		w := httptest.NewRecorder()

		service.ListAlbums(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, cached, w.Body.String())
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("falls back to the database without a cache", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewCatalogService(db, nil)

		dbMock.ExpectQuery("SELECT id, title, artist, description, price, cover_image_url, created_at").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "artist", "description", "price", "cover_image_url", "created_at"}).
				AddRow("album-1", "Night Drive", "The Waveforms", "Synthwave.", 9.99, nil, time.Now()))

		r := httptest.NewRequest("GET", "/api/v1/albums", nil)
		w := httptest.NewRecorder()

		service.ListAlbums(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Night Drive")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("database failure", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewCatalogService(db, nil)

		dbMock.ExpectQuery("SELECT id, title, artist, description, price, cover_image_url, created_at").
			WillReturnError(assert.AnError)

		r := httptest.NewRequest("GET", "/api/v1/albums", nil)
		w := httptest.NewRecorder()

		service.ListAlbums(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func contextWithRouteCtx(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}

func TestCatalogService_GetAlbum(t *testing.T) {
	t.Run("returns album with tracks", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewCatalogService(db, nil)

		dbMock.ExpectQuery("SELECT id, title, artist, description, price, cover_image_url, created_at").
			WithArgs("album-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "artist", "description", "price", "cover_image_url", "created_at"}).
				AddRow("album-1", "Night Drive", "The Waveforms", "Synthwave.", 9.99, nil, time.Now()))
		dbMock.ExpectQuery("SELECT id, album_id, title, description, track_number, created_at").
			WithArgs("album-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "album_id", "title", "description", "track_number", "created_at"}).
				AddRow("track-1", "album-1", "Opening", nil, 1, time.Now()).
				AddRow("track-2", "album-1", "Midnight", nil, 2, time.Now()))

		r := httptest.NewRequest("GET", "/api/v1/albums/album-1", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("albumId", "album-1")
		r = r.WithContext(contextWithRouteCtx(r, rctx))
		w := httptest.NewRecorder()

		service.GetAlbum(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Midnight")
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("unknown album", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewCatalogService(db, nil)

		dbMock.ExpectQuery("SELECT id, title, artist, description, price, cover_image_url, created_at").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		r := httptest.NewRequest("GET", "/api/v1/albums/missing", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("albumId", "missing")
		r = r.WithContext(contextWithRouteCtx(r, rctx))
		w := httptest.NewRecorder()

		service.GetAlbum(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
