package file

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
	"github.com/Alijeyrad/simward_backend/pkg/s3"
)

const (
	PurposeAttachment = "attachment"
	PurposeLogo       = "logo"
	PurposeAvatar     = "avatar"
	PurposeReport     = "report"
)

var (
	imageTypes    = []string{"image/png", "image/jpeg", "image/webp"}
	documentTypes = []string{"application/pdf", "text/plain", "text/csv"}

	allowedTypes = map[string][]string{
		PurposeAttachment: append(append([]string{}, imageTypes...), documentTypes...),
		PurposeLogo:       append([]string{"image/svg+xml"}, imageTypes...),
		PurposeAvatar:     imageTypes,
		PurposeReport:     {"application/pdf"},
	}
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type UploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Purpose     string `json:"purpose"`
}

type Presigned struct {
	Key       string `json:"key,omitempty"`
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// ObjectStore is satisfied by *s3.Client.
type ObjectStore interface {
	TTL() time.Duration
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

type Service interface {
	// PresignUpload issues a PUT URL for a new object under the caller's
	// organisation prefix. The client uploads directly to the bucket.
	PresignUpload(ctx context.Context, scope *reqctx.Scope, req UploadRequest) (*Presigned, error)
	// PresignDownload issues a GET URL for key. Keys outside the caller's
	// organisation are refused unless the caller is a superadmin.
	PresignDownload(ctx context.Context, scope *reqctx.Scope, key string) (*Presigned, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type fileService struct {
	objects ObjectStore
}

func New(objects ObjectStore) Service {
	return &fileService{objects: objects}
}

func (s *fileService) PresignUpload(ctx context.Context, scope *reqctx.Scope, req UploadRequest) (*Presigned, error) {
	if !scope.HasOrg() {
		return nil, ErrOrganisationRequired
	}
	name := strings.TrimSpace(req.FileName)
	if name == "" {
		return nil, ErrFileNameRequired
	}
	allowed, ok := allowedTypes[req.Purpose]
	if !ok {
		return nil, ErrInvalidPurpose
	}
	ct, err := normaliseContentType(req.ContentType)
	if err != nil || !lo.Contains(allowed, ct) {
		return nil, ErrContentTypeNotAllowed
	}

	key := s3.ObjectKey(scope.OrgID, req.Purpose, name)
	url, err := s.objects.PresignUpload(ctx, key, ct)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &Presigned{Key: key, URL: url, ExpiresIn: s.expiresIn()}, nil
}

func (s *fileService) PresignDownload(ctx context.Context, scope *reqctx.Scope, key string) (*Presigned, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrKeyRequired
	}
	if !scope.IsSuperAdmin && (!scope.HasOrg() || !s3.InOrg(scope.OrgID, key)) {
		return nil, ErrAccessDenied
	}

	url, err := s.objects.PresignDownload(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}
	return &Presigned{URL: url, ExpiresIn: s.expiresIn()}, nil
}

func (s *fileService) expiresIn() int64 {
	return int64(s.objects.TTL().Seconds())
}

// normaliseContentType drops parameters such as charset and lower-cases
// the media type.
func normaliseContentType(ct string) (string, error) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", err
	}
	return strings.ToLower(mt), nil
}
