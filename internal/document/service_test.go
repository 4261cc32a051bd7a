package document

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"residency/internal/files"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestService(t *testing.T, docTTL time.Duration) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	artifacts, err := files.NewLocalStore(dir, "/uploads")
	require.NoError(t, err)
	return NewService(NewInMemoryStore(), artifacts, nil, nil, docTTL), dir
}

func pdfUpload(name, content string) Upload {
	return Upload{
		Filename: name,
		MIMEType: "application/pdf",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestIngest(t *testing.T) {
	userID := id.NewUserID()

	t.Run("persists accepted uploads", func(t *testing.T) {
		svc, dir := newTestService(t, 0)

		docs, err := svc.Ingest(context.Background(), userID, id.DocumentPassport,
			[]Upload{pdfUpload("passport.pdf", "pdf bytes"), pdfUpload("second.pdf", "more bytes")})
		require.NoError(t, err)
		require.Len(t, docs, 2)

		for _, doc := range docs {
			assert.Equal(t, StatusPending, doc.Status)
			assert.Equal(t, userID, doc.UserID)
			assert.Nil(t, doc.ExpiresAt)
			assert.True(t, strings.HasPrefix(doc.URL, "/uploads/"))
			_, err := os.Stat(doc.StoragePath)
			assert.NoError(t, err)
		}
		assert.Equal(t, 2, countFiles(t, dir))
	})

	t.Run("one bad file rejects the whole batch before any write", func(t *testing.T) {
		svc, dir := newTestService(t, 0)

		_, err := svc.Ingest(context.Background(), userID, id.DocumentPassport, []Upload{
			pdfUpload("ok.pdf", "fine"),
			{Filename: "nope.exe", MIMEType: "application/x-msdownload", Size: 10, Content: strings.NewReader("0123456789")},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)
		assert.Equal(t, 0, countFiles(t, dir))

		docs, err := svc.ListByUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("empty and oversized batches rejected", func(t *testing.T) {
		svc, _ := newTestService(t, 0)

		_, err := svc.Ingest(context.Background(), userID, id.DocumentPassport, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		batch := make([]Upload, MaxFilesPerReq+1)
		for i := range batch {
			batch[i] = pdfUpload("f.pdf", "x")
		}
		_, err = svc.Ingest(context.Background(), userID, id.DocumentPassport, batch)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("ttl stamps an expiry from the request clock", func(t *testing.T) {
		svc, _ := newTestService(t, 24*time.Hour)
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), now)

		docs, err := svc.Ingest(ctx, userID, id.DocumentPhoto, []Upload{pdfUpload("photo.pdf", "img")})
		require.NoError(t, err)
		require.NotNil(t, docs[0].ExpiresAt)
		assert.Equal(t, now.Add(24*time.Hour), *docs[0].ExpiresAt)
	})
}

func TestDecide(t *testing.T) {
	userID := id.NewUserID()

	ingestOne := func(t *testing.T, svc *Service) *Document {
		t.Helper()
		docs, err := svc.Ingest(context.Background(), userID, id.DocumentPassport,
			[]Upload{pdfUpload("passport.pdf", "bytes")})
		require.NoError(t, err)
		return docs[0]
	}

	t.Run("verify and reject move a pending document", func(t *testing.T) {
		svc, _ := newTestService(t, 0)

		verified, err := svc.Decide(context.Background(), ingestOne(t, svc).ID, DecisionVerify)
		require.NoError(t, err)
		assert.Equal(t, StatusVerified, verified.Status)
		assert.NotNil(t, verified.ReviewedAt)

		rejectedDoc, err := svc.Decide(context.Background(), ingestOne(t, svc).ID, DecisionReject)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, rejectedDoc.Status)
	})

	t.Run("decisions on reviewed documents are illegal", func(t *testing.T) {
		svc, _ := newTestService(t, 0)
		doc := ingestOne(t, svc)

		_, err := svc.Decide(context.Background(), doc.ID, DecisionReject)
		require.NoError(t, err)

		for _, decision := range []Decision{DecisionVerify, DecisionReject} {
			_, err = svc.Decide(context.Background(), doc.ID, decision)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition), "got %v", err)
		}
	})

	t.Run("unknown document is not found", func(t *testing.T) {
		svc, _ := newTestService(t, 0)
		_, err := svc.Decide(context.Background(), id.NewDocumentID(), DecisionVerify)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "got %v", err)
	})
}

func TestVerifiedTypes(t *testing.T) {
	svc, _ := newTestService(t, 0)
	userID := id.NewUserID()

	passport, err := svc.Ingest(context.Background(), userID, id.DocumentPassport,
		[]Upload{pdfUpload("passport.pdf", "a")})
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), userID, id.DocumentPhoto,
		[]Upload{pdfUpload("photo.pdf", "b")})
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), passport[0].ID, DecisionVerify)
	require.NoError(t, err)

	verified, err := svc.VerifiedTypes(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, verified[id.DocumentPassport])
	assert.False(t, verified[id.DocumentPhoto])
}

func TestGCSweep(t *testing.T) {
	dir := t.TempDir()
	artifacts, err := files.NewLocalStore(dir, "/uploads")
	require.NoError(t, err)
	store := NewInMemoryStore()
	svc := NewService(store, artifacts, nil, nil, time.Millisecond)
	userID := id.NewUserID()

	past := time.Now().UTC().Add(-time.Hour)
	docs, err := svc.Ingest(requestcontext.WithTime(context.Background(), past), userID,
		id.DocumentPassport, []Upload{pdfUpload("old.pdf", "stale")})
	require.NoError(t, err)

	reviewed, err := svc.Ingest(requestcontext.WithTime(context.Background(), past), userID,
		id.DocumentPhoto, []Upload{pdfUpload("reviewed.pdf", "kept")})
	require.NoError(t, err)
	_, err = svc.Decide(context.Background(), reviewed[0].ID, DecisionVerify)
	require.NoError(t, err)

	gc := NewGC(store, artifacts, nil, discardLogger(), time.Hour)
	gc.Sweep(context.Background())

	doc, err := svc.Get(context.Background(), docs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, doc.Status)
	assert.NoFileExists(t, filepath.Join(dir, filepath.Base(doc.StoragePath)))

	// Review outcomes are audit state: a verified document keeps its status
	// and its file even past the upload TTL.
	kept, err := svc.Get(context.Background(), reviewed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, kept.Status)
	assert.FileExists(t, filepath.Join(dir, filepath.Base(kept.StoragePath)))
}
