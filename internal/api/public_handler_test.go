package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cvforge/internal/database"
	"cvforge/internal/pdfcache"
	"cvforge/internal/render"
	"cvforge/internal/resume"
)

type fakeGenerator struct {
	pdf   []byte
	err   error
	calls int
}

func (g *fakeGenerator) GeneratePDF(_ context.Context, _ string) ([]byte, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.pdf, nil
}

func (g *fakeGenerator) CapturePreview(_ context.Context, _ string, _ int) ([]byte, error) {
	return nil, nil
}

func newPublicTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Resume{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedPublicResume(t *testing.T, db *gorm.DB, isPublic bool) *database.Resume {
	t.Helper()
	user := database.User{Username: "ada", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	content, err := json.Marshal(resume.Data{
		PersonalInfo: resume.PersonalInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			JobTitle:  "Engineer",
			Email:     "ada@example.com",
		},
	})
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}

	rec := database.Resume{
		Title:      "CV",
		Content:    datatypes.JSON(content),
		UserID:     user.ID,
		Slug:       "cv",
		IsPublic:   isPublic,
		TemplateID: render.DefaultTemplateID,
	}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	return &rec
}

func newPublicTestHandler(db *gorm.DB, gen render.Generator) *PublicHandler {
	return NewPublicHandler(db, nil, pdfcache.New(time.Minute, 10), gen, nil, slog.Default(), time.Second, 0, time.Minute)
}

func newPublicTestRouter(h *PublicHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/public/:username/:slug/download", h.Download)
	return router
}

func doDownload(router *gin.Engine, username, slug string, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/public/"+username+"/"+slug+"/download", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: consentCookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPublicDownloadNotFound(t *testing.T) {
	db := newPublicTestDB(t)
	seedPublicResume(t, db, false)

	gen := &fakeGenerator{pdf: []byte("%PDF-fake")}
	router := newPublicTestRouter(newPublicTestHandler(db, gen))

	cases := []struct {
		name     string
		username string
		slug     string
	}{
		{"unknown user", "nobody", "cv"},
		{"unknown slug", "ada", "missing"},
		{"private resume", "ada", "cv"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doDownload(router, tc.username, tc.slug, "")
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), publicNotFoundMessage) {
				t.Fatalf("expected generic not-found body, got %s", w.Body.String())
			}
			if gen.calls != 0 {
				t.Fatalf("generator should not run, got %d calls", gen.calls)
			}
		})
	}
}

func TestPublicDownloadMissThenHit(t *testing.T) {
	db := newPublicTestDB(t)
	seedPublicResume(t, db, true)

	gen := &fakeGenerator{pdf: []byte("%PDF-fake")}
	router := newPublicTestRouter(newPublicTestHandler(db, gen))

	first := doDownload(router, "ada", "cv", "")
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", first.Code, first.Body.String())
	}
	if got := first.Header().Get("X-Cache"); got != "MISS" {
		t.Fatalf("expected X-Cache MISS, got %q", got)
	}
	if got := first.Header().Get("Content-Disposition"); got != `attachment; filename="Ada_Lovelace_Resume.pdf"` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if got := first.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if first.Body.String() != "%PDF-fake" {
		t.Fatalf("unexpected body %q", first.Body.String())
	}

	second := doDownload(router, "ada", "cv", "")
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", second.Code)
	}
	if got := second.Header().Get("X-Cache"); got != "HIT" {
		t.Fatalf("expected X-Cache HIT, got %q", got)
	}
	if second.Body.String() != "%PDF-fake" {
		t.Fatalf("cached body mismatch: %q", second.Body.String())
	}
	if gen.calls != 1 {
		t.Fatalf("expected a single render, got %d", gen.calls)
	}
}

func TestPublicDownloadTimeoutIsNotCached(t *testing.T) {
	db := newPublicTestDB(t)
	seedPublicResume(t, db, true)

	gen := &fakeGenerator{err: fmt.Errorf("%w: context deadline exceeded", render.ErrTimeout)}
	h := newPublicTestHandler(db, gen)
	router := newPublicTestRouter(h)

	for i := 0; i < 2; i++ {
		w := doDownload(router, "ada", "cv", "")
		if w.Code != http.StatusGatewayTimeout {
			t.Fatalf("expected 504 got %d body=%s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), publicTimeoutMessage) {
			t.Fatalf("unexpected body %s", w.Body.String())
		}
	}
	if gen.calls != 2 {
		t.Fatalf("timed-out renders must not be cached, got %d calls", gen.calls)
	}
	if h.cache.Len() != 0 {
		t.Fatalf("cache should stay empty, has %d entries", h.cache.Len())
	}
}

func TestPublicDownloadRenderFailure(t *testing.T) {
	db := newPublicTestDB(t)
	seedPublicResume(t, db, true)

	gen := &fakeGenerator{err: fmt.Errorf("browser crashed")}
	router := newPublicTestRouter(newPublicTestHandler(db, gen))

	w := doDownload(router, "ada", "cv", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), publicRenderFailMessage) {
		t.Fatalf("expected generic failure body, got %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "browser crashed") {
		t.Fatalf("internal error leaked to client: %s", w.Body.String())
	}
}

func TestPublicDownloadConsentGatesCounting(t *testing.T) {
	db := newPublicTestDB(t)
	rec := seedPublicResume(t, db, true)

	gen := &fakeGenerator{pdf: []byte("%PDF-fake")}
	router := newPublicTestRouter(newPublicTestHandler(db, gen))

	readCount := func() int64 {
		var current database.Resume
		if err := db.First(&current, rec.ID).Error; err != nil {
			t.Fatalf("reload resume: %v", err)
		}
		return current.DownloadCount
	}

	// 无同意 Cookie 或值不对时不计数。
	doDownload(router, "ada", "cv", "")
	doDownload(router, "ada", "cv", "denied")
	time.Sleep(100 * time.Millisecond)
	if got := readCount(); got != 0 {
		t.Fatalf("expected count 0 without consent, got %d", got)
	}

	doDownload(router, "ada", "cv", consentGrantedValue)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if readCount() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("download count never reached 1, got %d", readCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBuildDownloadFileName(t *testing.T) {
	cases := []struct {
		first string
		last  string
		want  string
	}{
		{"Ada", "Lovelace", "Ada_Lovelace_Resume.pdf"},
		{"Mary Jane", "O'Neil", "Mary_Jane_O_Neil_Resume.pdf"},
		{"José", "", "Jos_Resume.pdf"},
		{"", "", "Resume.pdf"},
		{"  ", "!!!", "Resume.pdf"},
		{"__a__b__", "", "a_b_Resume.pdf"},
		{strings.Repeat("x", 80), "", strings.Repeat("x", 50) + "_Resume.pdf"},
	}

	for _, tc := range cases {
		if got := buildDownloadFileName(tc.first, tc.last); got != tc.want {
			t.Errorf("buildDownloadFileName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}
