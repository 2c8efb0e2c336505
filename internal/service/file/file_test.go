package file

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
	"github.com/Alijeyrad/simward_backend/pkg/s3"
)

type fakeObjects struct {
	uploads map[string]string
}

func (f *fakeObjects) TTL() time.Duration { return 15 * time.Minute }

func (f *fakeObjects) PresignUpload(_ context.Context, key, contentType string) (string, error) {
	f.uploads[key] = contentType
	return "https://bucket.test/" + key + "?put", nil
}

func (f *fakeObjects) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://bucket.test/" + key + "?get", nil
}

func TestPresignUpload(t *testing.T) {
	ctx := context.Background()
	objects := &fakeObjects{uploads: map[string]string{}}
	svc := New(objects)
	org := uuid.New()
	scope := &reqctx.Scope{UserID: uuid.New(), OrgID: org, Role: "faculty"}

	got, err := svc.PresignUpload(ctx, scope, UploadRequest{
		FileName:    "Chest X-Ray.PNG",
		ContentType: "Image/PNG",
		Purpose:     PurposeAttachment,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Key, s3.OrgPrefix(org)+"attachment/"))
	assert.True(t, strings.HasSuffix(got.Key, ".png"))
	assert.Equal(t, int64(900), got.ExpiresIn)
	assert.Equal(t, "image/png", objects.uploads[got.Key])

	tests := []struct {
		name  string
		scope *reqctx.Scope
		req   UploadRequest
		want  error
	}{
		{"no org", &reqctx.Scope{UserID: uuid.New(), IsSuperAdmin: true},
			UploadRequest{FileName: "a.pdf", ContentType: "application/pdf", Purpose: PurposeReport}, ErrOrganisationRequired},
		{"no name", scope, UploadRequest{FileName: " ", ContentType: "application/pdf", Purpose: PurposeReport}, ErrFileNameRequired},
		{"bad purpose", scope, UploadRequest{FileName: "a.pdf", ContentType: "application/pdf", Purpose: "backup"}, ErrInvalidPurpose},
		{"type not allowed for purpose", scope, UploadRequest{FileName: "a.pdf", ContentType: "application/pdf", Purpose: PurposeAvatar}, ErrContentTypeNotAllowed},
		{"executable", scope, UploadRequest{FileName: "a.exe", ContentType: "application/x-msdownload", Purpose: PurposeAttachment}, ErrContentTypeNotAllowed},
		{"garbage type", scope, UploadRequest{FileName: "a.pdf", ContentType: ";;", Purpose: PurposeAttachment}, ErrContentTypeNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PresignUpload(ctx, tt.scope, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPresignDownloadScopesKeys(t *testing.T) {
	ctx := context.Background()
	svc := New(&fakeObjects{uploads: map[string]string{}})
	org := uuid.New()
	key := s3.ObjectKey(org, PurposeReport, "report.pdf")

	got, err := svc.PresignDownload(ctx, &reqctx.Scope{UserID: uuid.New(), OrgID: org}, key)
	require.NoError(t, err)
	assert.Contains(t, got.URL, key)
	assert.Empty(t, got.Key)

	_, err = svc.PresignDownload(ctx, &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}, key)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.PresignDownload(ctx, &reqctx.Scope{UserID: uuid.New(), OrgID: org}, s3.OrgPrefix(org)+"../x")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.PresignDownload(ctx, &reqctx.Scope{UserID: uuid.New(), IsSuperAdmin: true}, key)
	assert.NoError(t, err)

	_, err = svc.PresignDownload(ctx, &reqctx.Scope{UserID: uuid.New(), OrgID: org}, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}
