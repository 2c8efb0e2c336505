package patient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/crypto"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
	"github.com/Alijeyrad/simward_backend/pkg/s3"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Gender         string    `json:"gender"`
	HospitalNumber string    `json:"hospital_number"`
	Ward           string    `json:"ward"`
	Bed            string    `json:"bed"`
	Diagnosis      string    `json:"diagnosis"`
	Allergies      []string  `json:"allergies"`
	HeightCm       *float64  `json:"height_cm"`
	WeightKg       *float64  `json:"weight_kg"`
	Category       string    `json:"category"`
}

type UpdateRequest struct {
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Gender         *string    `json:"gender"`
	HospitalNumber *string    `json:"hospital_number"`
	Ward           *string    `json:"ward"`
	Bed            *string    `json:"bed"`
	Diagnosis      *string    `json:"diagnosis"`
	Allergies      *[]string  `json:"allergies"`
	HeightCm       *float64   `json:"height_cm"`
	WeightKg       *float64   `json:"weight_kg"`
	Category       *string    `json:"category"`
	Status         *string    `json:"status"`
}

type ListRequest struct {
	Status   string
	Category string
	Ward     string
	Search   string
	Page     repo.Page
}

type NoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type AttachmentRequest struct {
	FileKey     string `json:"file_key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type DownloadURL struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.PatientRepo.
type Store interface {
	Create(ctx context.Context, p *repo.Patient) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*repo.Patient, error)
	List(ctx context.Context, orgID uuid.UUID, f repo.PatientFilter, pg repo.Page) ([]repo.Patient, int, error)
	Update(ctx context.Context, p *repo.Patient) error
	SoftDelete(ctx context.Context, orgID, id uuid.UUID) error

	CreateNote(ctx context.Context, n *repo.PatientNote) error
	ListNotes(ctx context.Context, patientID uuid.UUID, pg repo.Page) ([]repo.PatientNote, int, error)
	DeleteNote(ctx context.Context, patientID, noteID uuid.UUID) error

	CreateAttachment(ctx context.Context, a *repo.PatientAttachment) error
	ListAttachments(ctx context.Context, patientID uuid.UUID) ([]repo.PatientAttachment, error)
	GetAttachment(ctx context.Context, patientID, id uuid.UUID) (*repo.PatientAttachment, error)
	DeleteAttachment(ctx context.Context, patientID, id uuid.UUID) error
}

// ObjectStore is satisfied by *s3.Client.
type ObjectStore interface {
	TTL() time.Duration
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service interface {
	Create(ctx context.Context, scope *reqctx.Scope, req CreateRequest) (*repo.Patient, error)
	Get(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error)
	List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.Patient], error)
	Update(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, req UpdateRequest) (*repo.Patient, error)
	Delete(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error

	AddNote(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req NoteRequest) (*repo.PatientNote, error)
	ListNotes(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, pg repo.Page) (*repo.Paginated[repo.PatientNote], error)
	DeleteNote(ctx context.Context, scope *reqctx.Scope, patientID, noteID uuid.UUID) error

	AddAttachment(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req AttachmentRequest) (*repo.PatientAttachment, error)
	ListAttachments(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID) ([]repo.PatientAttachment, error)
	AttachmentURL(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*DownloadURL, error)
	DeleteAttachment(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

var (
	validGenders    = []string{"male", "female", "other", "unknown"}
	validCategories = []string{repo.PatientCategoryAdult, repo.PatientCategoryPaediatric, repo.PatientCategoryMaternity}
	validStatuses   = []string{repo.PatientStatusActive, repo.PatientStatusArchived}
)

type patientService struct {
	store   Store
	cipher  *crypto.FieldCipher
	objects ObjectStore
	now     func() time.Time
}

func New(store Store, cipher *crypto.FieldCipher, objects ObjectStore) Service {
	return &patientService{store: store, cipher: cipher, objects: objects, now: time.Now}
}

func (s *patientService) Create(ctx context.Context, scope *reqctx.Scope, req CreateRequest) (*repo.Patient, error) {
	p := &repo.Patient{
		OrganisationID: scope.OrgID,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		DateOfBirth:    req.DateOfBirth,
		Gender:         lo.Ternary(req.Gender == "", "unknown", strings.ToLower(req.Gender)),
		Ward:           strings.TrimSpace(req.Ward),
		Bed:            strings.TrimSpace(req.Bed),
		Diagnosis:      strings.TrimSpace(req.Diagnosis),
		Allergies:      cleanAllergies(req.Allergies),
		HeightCm:       req.HeightCm,
		WeightKg:       req.WeightKg,
		Category:       lo.Ternary(req.Category == "", repo.PatientCategoryAdult, req.Category),
		Status:         repo.PatientStatusActive,
		CreatedBy:      &scope.UserID,
	}
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if err := s.setHospitalNumber(p, req.HospitalNumber); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrHospitalNumberTaken
		}
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

func (s *patientService) Get(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Patient, error) {
	p, err := s.store.Get(ctx, scope.OrgID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	s.decrypt(ctx, p)
	return p, nil
}

func (s *patientService) List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.Patient], error) {
	pg := req.Page.Normalize()
	items, total, err := s.store.List(ctx, scope.OrgID, repo.PatientFilter{
		Status:   req.Status,
		Category: req.Category,
		Ward:     req.Ward,
		Search:   strings.TrimSpace(req.Search),
	}, pg)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	for i := range items {
		s.decrypt(ctx, &items[i])
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *patientService) Update(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, req UpdateRequest) (*repo.Patient, error) {
	p, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		p.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		p.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.DateOfBirth != nil {
		p.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		p.Gender = strings.ToLower(*req.Gender)
	}
	if req.Ward != nil {
		p.Ward = strings.TrimSpace(*req.Ward)
	}
	if req.Bed != nil {
		p.Bed = strings.TrimSpace(*req.Bed)
	}
	if req.Diagnosis != nil {
		p.Diagnosis = strings.TrimSpace(*req.Diagnosis)
	}
	if req.Allergies != nil {
		p.Allergies = cleanAllergies(*req.Allergies)
	}
	if req.HeightCm != nil {
		p.HeightCm = req.HeightCm
	}
	if req.WeightKg != nil {
		p.WeightKg = req.WeightKg
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if req.HospitalNumber != nil {
		if err := s.setHospitalNumber(p, *req.HospitalNumber); err != nil {
			return nil, err
		}
	}

	if err := s.store.Update(ctx, p); err != nil {
		switch {
		case errors.Is(err, repo.ErrConflict):
			return nil, ErrHospitalNumberTaken
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return p, nil
}

func (s *patientService) Delete(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	err := s.store.SoftDelete(ctx, scope.OrgID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPatientNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// Notes
// ---------------------------------------------------------------------------

func (s *patientService) AddNote(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req NoteRequest) (*repo.PatientNote, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, ErrNoteBodyRequired
	}
	if err := s.ensurePatient(ctx, scope, patientID); err != nil {
		return nil, err
	}

	n := &repo.PatientNote{
		PatientID: patientID,
		AuthorID:  scope.UserID,
		Title:     strings.TrimSpace(req.Title),
		Body:      strings.TrimSpace(req.Body),
	}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (s *patientService) ListNotes(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, pg repo.Page) (*repo.Paginated[repo.PatientNote], error) {
	if err := s.ensurePatient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	pg = pg.Normalize()
	items, total, err := s.store.ListNotes(ctx, patientID, pg)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *patientService) DeleteNote(ctx context.Context, scope *reqctx.Scope, patientID, noteID uuid.UUID) error {
	if err := s.ensurePatient(ctx, scope, patientID); err != nil {
		return err
	}
	err := s.store.DeleteNote(ctx, patientID, noteID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNoteNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// Attachments
// ---------------------------------------------------------------------------

// AddAttachment records an object the client already uploaded through a
// presigned URL.
func (s *patientService) AddAttachment(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID, req AttachmentRequest) (*repo.PatientAttachment, error) {
	if !s3.InOrg(scope.OrgID, req.FileKey) {
		return nil, ErrAttachmentKeyNotInOrg
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, ErrFileNameRequired
	}
	if err := s.ensurePatient(ctx, scope, patientID); err != nil {
		return nil, err
	}

	a := &repo.PatientAttachment{
		PatientID:      patientID,
		OrganisationID: scope.OrgID,
		UploadedBy:     scope.UserID,
		FileKey:        req.FileKey,
		FileName:       strings.TrimSpace(req.FileName),
		ContentType:    req.ContentType,
		SizeBytes:      max(req.SizeBytes, 0),
	}
	if err := s.store.CreateAttachment(ctx, a); err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	return a, nil
}

func (s *patientService) ListAttachments(ctx context.Context, scope *reqctx.Scope, patientID uuid.UUID) ([]repo.PatientAttachment, error) {
	if err := s.ensurePatient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, patientID)
}

func (s *patientService) AttachmentURL(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*DownloadURL, error) {
	a, err := s.getAttachment(ctx, scope, patientID, id)
	if err != nil {
		return nil, err
	}
	url, err := s.objects.PresignDownload(ctx, a.FileKey)
	if err != nil {
		return nil, err
	}
	return &DownloadURL{URL: url, ExpiresIn: int64(s.objects.TTL().Seconds())}, nil
}

func (s *patientService) DeleteAttachment(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) error {
	a, err := s.getAttachment(ctx, scope, patientID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(ctx, patientID, a.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	// An orphaned object is harmless; the row is what clients see.
	if err := s.objects.Delete(ctx, a.FileKey); err != nil {
		slog.WarnContext(ctx, "patient: delete attachment object failed", "key", a.FileKey, "err", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *patientService) getAttachment(ctx context.Context, scope *reqctx.Scope, patientID, id uuid.UUID) (*repo.PatientAttachment, error) {
	if err := s.ensurePatient(ctx, scope, patientID); err != nil {
		return nil, err
	}
	a, err := s.store.GetAttachment(ctx, patientID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAttachmentNotFound
	}
	return a, err
}

func (s *patientService) ensurePatient(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	_, err := s.store.Get(ctx, scope.OrgID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPatientNotFound
	}
	return err
}

func (s *patientService) validate(p *repo.Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return ErrNameRequired
	}
	if p.DateOfBirth.IsZero() || p.DateOfBirth.After(s.now()) {
		return ErrInvalidDateOfBirth
	}
	if !lo.Contains(validGenders, p.Gender) {
		return ErrInvalidGender
	}
	if !lo.Contains(validCategories, p.Category) {
		return ErrInvalidCategory
	}
	if !lo.Contains(validStatuses, p.Status) {
		return ErrInvalidStatus
	}
	if (p.HeightCm != nil && *p.HeightCm <= 0) || (p.WeightKg != nil && *p.WeightKg <= 0) {
		return ErrInvalidMeasurement
	}
	return nil
}

// setHospitalNumber stores the number encrypted plus a per-organisation
// lookup hash that backs the uniqueness index. Empty clears both.
func (s *patientService) setHospitalNumber(p *repo.Patient, raw string) error {
	hn := strings.ToUpper(strings.TrimSpace(raw))
	p.HospitalNumber = hn
	if hn == "" {
		p.HospitalNumberEnc, p.HospitalNumberHash = "", nil
		return nil
	}

	enc, err := s.cipher.Encrypt(hn)
	if err != nil {
		return fmt.Errorf("encrypt hospital number: %w", err)
	}
	hash := s.cipher.LookupHash(p.OrganisationID.String(), hn)
	p.HospitalNumberEnc, p.HospitalNumberHash = enc, &hash
	return nil
}

func (s *patientService) decrypt(ctx context.Context, p *repo.Patient) {
	if p.HospitalNumberEnc == "" {
		return
	}
	hn, err := s.cipher.Decrypt(p.HospitalNumberEnc)
	if err != nil {
		slog.ErrorContext(ctx, "patient: hospital number decrypt failed", "patient_id", p.ID, "err", err)
		return
	}
	p.HospitalNumber = hn
}

func cleanAllergies(in []string) pq.StringArray {
	out := lo.Uniq(lo.FilterMap(in, func(a string, _ int) (string, bool) {
		a = strings.TrimSpace(a)
		return a, a != ""
	}))
	return pq.StringArray(out)
}
