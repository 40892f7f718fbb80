package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/openvera/internal/domain/matcher"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// books is a small seeded company: one invoice and the payment for it
type books struct {
	repo      *storage.MockRepository
	companyID int64
	accountID int64
	docID     int64
	txnID     int64
}

func seedBooks(t *testing.T) *books {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMockRepository()

	company := &storage.Company{Slug: "acme", Name: "Acme AB"}
	require.NoError(t, repo.CreateCompany(ctx, company))
	account := &storage.Account{CompanyID: company.ID, Name: "Business account", Currency: "SEK"}
	require.NoError(t, repo.CreateAccount(ctx, account))

	docDate := time.Date(2025, 2, 19, 0, 0, 0, 0, time.UTC)
	doc := &matcher.Document{
		CompanyID: company.ID,
		Amount:    decimal.NewNullDecimal(decimal.RequireFromString("584.00")),
		DocDate:   &docDate,
	}
	require.NoError(t, repo.CreateDocument(ctx, doc))

	txn := &matcher.Transaction{
		CompanyID: company.ID,
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("-584.00"),
		Date:      docDate.AddDate(0, 0, 1),
		Reference: "KORTKÖP CLAUDE.AI",
	}
	require.NoError(t, repo.CreateTransaction(ctx, txn))

	return &books{
		repo:      repo,
		companyID: company.ID,
		accountID: account.ID,
		docID:     doc.ID,
		txnID:     txn.ID,
	}
}

// setChiURLParam sets a chi URL parameter in the context for testing.
func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func newRequest(method, target string, body *bytes.Reader) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	return httptest.NewRequest(method, target, body)
}
