package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
)

type fakeVerifier struct {
	gotDoc    domain.Document
	gotParams domain.SubmitParams
	res       domain.VerificationResult
	err       error
}

func (f *fakeVerifier) Submit(_ context.Context, doc domain.Document, p domain.SubmitParams) (domain.VerificationResult, error) {
	f.gotDoc, f.gotParams = doc, p
	return f.res, f.err
}

func (f *fakeVerifier) Certificate(_ context.Context, number string) (domain.VerificationResult, error) {
	if number != f.res.ParsingResult.CertificateNumber {
		return domain.VerificationResult{}, domain.ErrNotFound
	}
	return f.res, nil
}

type fakeRefs struct {
	foods []string
	limit domain.Limit
	err   error
}

func (f *fakeRefs) SearchFoods(_ context.Context, q string) ([]string, error) { return f.foods, f.err }
func (f *fakeRefs) SearchPesticides(_ context.Context, q string) ([]string, error) {
	return []string{"Azoxystrobin"}, f.err
}
func (f *fakeRefs) Limit(_ context.Context, food, pesticide string) (domain.Limit, error) {
	return f.limit, f.err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func upload(t *testing.T, target string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if content != nil {
		part, err := mw.CreateFormFile("file", "cert.pdf")
		require.NoError(t, err)
		_, _ = part.Write(content)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var er domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	return er
}

func TestVerifyBindsParamsFromQueryAndForm(t *testing.T) {
	v := &fakeVerifier{res: domain.VerificationResult{Food: "사과"}}
	srv := New(v, &fakeRefs{}, nil, Options{})

	req := upload(t, "/api/certificates/verify?overwrite=true", []byte("%PDF-1.7"), map[string]string{
		"selectedFood":       "사과",
		"skipFoodValidation": "false",
	})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.SubmitParams{Overwrite: true, SelectedFood: "사과"}, v.gotParams)
	assert.Equal(t, "cert.pdf", v.gotDoc.Name)
	assert.Equal(t, []byte("%PDF-1.7"), v.gotDoc.Content)

	var res domain.VerificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "사과", res.Food)
}

func TestVerifyRejectsBadBoolean(t *testing.T) {
	srv := New(&fakeVerifier{}, &fakeRefs{}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, upload(t, "/api/certificates/verify?overwrite=maybe", []byte("%PDF"), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "overwrite")
}

func TestVerifyMissingFile(t *testing.T) {
	srv := New(&fakeVerifier{}, &fakeRefs{}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, upload(t, "/api/certificates/verify", nil, map[string]string{"overwrite": "true"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "file")
}

func TestVerifyTooLarge(t *testing.T) {
	srv := New(&fakeVerifier{}, &fakeRefs{}, nil, Options{MaxUploadBytes: 64})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, upload(t, "/api/certificates/verify", bytes.Repeat([]byte("x"), 4096), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestVerifyPassesErrorResponseThrough(t *testing.T) {
	v := &fakeVerifier{err: domain.FoodSelectionRequired("사 과", []string{"사과"})}
	srv := New(v, &fakeRefs{}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, upload(t, "/api/certificates/verify", []byte("%PDF"), nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	er := decodeError(t, rec)
	assert.True(t, er.RequiresFoodSelection)
	assert.Equal(t, "사 과", er.ParsedFood)
	assert.Equal(t, []string{"사과"}, er.SimilarFoods)
}

func TestVerifyDuplicate(t *testing.T) {
	v := &fakeVerifier{err: domain.DuplicateCertificate("NO-1")}
	srv := New(v, &fakeRefs{}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, upload(t, "/api/certificates/verify", []byte("%PDF"), nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, domain.DuplicatePhrase)
}

func TestUnknownErrorIs500(t *testing.T) {
	v := &fakeVerifier{err: errors.New("boom")}
	srv := New(v, &fakeRefs{}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, upload(t, "/api/certificates/verify", []byte("%PDF"), nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestSearchFoods(t *testing.T) {
	srv := New(&fakeVerifier{}, &fakeRefs{foods: []string{"사과", "사과즙"}}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/foods/search?q=%EC%82%AC", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{"사과", "사과즙"}, out)
}

func TestLimitNotFound(t *testing.T) {
	srv := New(&fakeVerifier{}, &fakeRefs{err: domain.ErrNotFound}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/limits?food=a&pesticide=b", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLimitRequiresParams(t *testing.T) {
	srv := New(&fakeVerifier{}, &fakeRefs{}, nil, Options{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/limits?food=a", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Errors, "pesticide")
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&fakeVerifier{}, &fakeRefs{}, nil, Options{Health: fakePinger{}}).Routes().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	New(&fakeVerifier{}, &fakeRefs{}, nil, Options{Health: fakePinger{err: errors.New("down")}}).Routes().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetCertificate(t *testing.T) {
	v := &fakeVerifier{res: domain.VerificationResult{ParsingResult: domain.ExtractedCertificate{CertificateNumber: "2024-001"}}}
	srv := New(v, &fakeRefs{}, nil, Options{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/certificates/2024-001", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.VerificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "2024-001", res.ParsingResult.CertificateNumber)

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/certificates/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
