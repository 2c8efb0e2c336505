package patient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/crypto"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
	"github.com/Alijeyrad/simward_backend/pkg/s3"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type fakeStore struct {
	mu          sync.Mutex
	patients    map[uuid.UUID]*repo.Patient
	notes       map[uuid.UUID]*repo.PatientNote
	attachments map[uuid.UUID]*repo.PatientAttachment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patients:    map[uuid.UUID]*repo.Patient{},
		notes:       map[uuid.UUID]*repo.PatientNote{},
		attachments: map[uuid.UUID]*repo.PatientAttachment{},
	}
}

func (f *fakeStore) hashTaken(p *repo.Patient) bool {
	if p.HospitalNumberHash == nil {
		return false
	}
	for _, x := range f.patients {
		if x.ID != p.ID && x.DeletedAt == nil && x.OrganisationID == p.OrganisationID &&
			x.HospitalNumberHash != nil && *x.HospitalNumberHash == *p.HospitalNumberHash {
			return true
		}
	}
	return false
}

func (f *fakeStore) Create(_ context.Context, p *repo.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashTaken(p) {
		return repo.ErrConflict
	}
	p.ID = uuid.New()
	cp := *p
	cp.HospitalNumber = ""
	f.patients[p.ID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, orgID, id uuid.UUID) (*repo.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok || p.OrganisationID != orgID || p.DeletedAt != nil {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, orgID uuid.UUID, _ repo.PatientFilter, _ repo.Page) ([]repo.Patient, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repo.Patient
	for _, p := range f.patients {
		if p.OrganisationID == orgID && p.DeletedAt == nil {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Update(_ context.Context, p *repo.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashTaken(p) {
		return repo.ErrConflict
	}
	cp := *p
	cp.HospitalNumber = ""
	f.patients[p.ID] = &cp
	return nil
}

func (f *fakeStore) SoftDelete(_ context.Context, orgID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok || p.OrganisationID != orgID || p.DeletedAt != nil {
		return repo.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	return nil
}

func (f *fakeStore) CreateNote(_ context.Context, n *repo.PatientNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uuid.New()
	cp := *n
	f.notes[n.ID] = &cp
	return nil
}

func (f *fakeStore) ListNotes(_ context.Context, patientID uuid.UUID, _ repo.Page) ([]repo.PatientNote, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repo.PatientNote
	for _, n := range f.notes {
		if n.PatientID == patientID {
			out = append(out, *n)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) DeleteNote(_ context.Context, patientID, noteID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok || n.PatientID != patientID {
		return repo.ErrNotFound
	}
	delete(f.notes, noteID)
	return nil
}

func (f *fakeStore) CreateAttachment(_ context.Context, a *repo.PatientAttachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	cp := *a
	f.attachments[a.ID] = &cp
	return nil
}

func (f *fakeStore) ListAttachments(_ context.Context, patientID uuid.UUID) ([]repo.PatientAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repo.PatientAttachment
	for _, a := range f.attachments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAttachment(_ context.Context, patientID, id uuid.UUID) (*repo.PatientAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attachments[id]
	if !ok || a.PatientID != patientID {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) DeleteAttachment(_ context.Context, patientID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.attachments[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.attachments, id)
	return nil
}

type fakeObjects struct {
	deleted []string
}

func (f *fakeObjects) TTL() time.Duration { return 15 * time.Minute }

func (f *fakeObjects) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://bucket.example.test/" + key + "?sig=x", nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func setup(t *testing.T) (Service, *fakeStore, *fakeObjects, *reqctx.Scope) {
	t.Helper()
	cipher, err := crypto.NewFieldCipher(testKey)
	require.NoError(t, err)
	store, objects := newFakeStore(), &fakeObjects{}
	scope := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New(), Role: "faculty"}
	return New(store, cipher, objects), store, objects, scope
}

func validRequest() CreateRequest {
	height, weight := 172.5, 68.0
	return CreateRequest{
		FirstName:      "Mary",
		LastName:       "Shelley",
		DateOfBirth:    time.Date(1987, 8, 30, 0, 0, 0, 0, time.UTC),
		Gender:         "female",
		HospitalNumber: "h1234567",
		Ward:           "Ward 7",
		Bed:            "12",
		Diagnosis:      "Community acquired pneumonia",
		Allergies:      []string{"Penicillin", " penicillin ", "", "Penicillin"},
		HeightCm:       &height,
		WeightKg:       &weight,
	}
}

func TestCreatedPatientIsRetrievable(t *testing.T) {
	svc, store, _, scope := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, scope, validRequest())
	require.NoError(t, err)

	stored := store.patients[created.ID]
	assert.NotContains(t, stored.HospitalNumberEnc, "H1234567")
	require.NotNil(t, stored.HospitalNumberHash)

	got, err := svc.Get(ctx, scope, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, "H1234567", got.HospitalNumber)
	assert.Equal(t, []string{"Penicillin", "penicillin"}, []string(got.Allergies))
	assert.Equal(t, repo.PatientCategoryAdult, got.Category)

	other := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	_, err = svc.Get(ctx, other, created.ID)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, scope := setup(t)

	tests := []struct {
		name    string
		mutate  func(r *CreateRequest)
		wantErr error
	}{
		{"missing name", func(r *CreateRequest) { r.LastName = " " }, ErrNameRequired},
		{"future birth", func(r *CreateRequest) { r.DateOfBirth = time.Now().Add(48 * time.Hour) }, ErrInvalidDateOfBirth},
		{"bad gender", func(r *CreateRequest) { r.Gender = "x" }, ErrInvalidGender},
		{"bad category", func(r *CreateRequest) { r.Category = "geriatric" }, ErrInvalidCategory},
		{"negative weight", func(r *CreateRequest) { w := -1.0; r.WeightKg = &w }, ErrInvalidMeasurement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), scope, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHospitalNumberUniquePerOrganisation(t *testing.T) {
	svc, _, _, scope := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, scope, validRequest())
	require.NoError(t, err)

	dup := validRequest()
	dup.HospitalNumber = " H1234567 "
	_, err = svc.Create(ctx, scope, dup)
	assert.ErrorIs(t, err, ErrHospitalNumberTaken)

	other := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	_, err = svc.Create(ctx, other, dup)
	assert.NoError(t, err)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _, _, scope := setup(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, scope, validRequest())
	require.NoError(t, err)

	archived := repo.PatientStatusArchived
	ward := "ICU"
	got, err := svc.Update(ctx, scope, p.ID, UpdateRequest{Status: &archived, Ward: &ward})
	require.NoError(t, err)
	assert.Equal(t, "ICU", got.Ward)
	assert.Equal(t, "H1234567", got.HospitalNumber)

	bad := "frozen"
	_, err = svc.Update(ctx, scope, p.ID, UpdateRequest{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	require.NoError(t, svc.Delete(ctx, scope, p.ID))
	_, err = svc.Get(ctx, scope, p.ID)
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, scope, p.ID), ErrPatientNotFound)
}

func TestNotes(t *testing.T) {
	svc, _, _, scope := setup(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, scope, validRequest())
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, scope, p.ID, NoteRequest{Title: "Handover"})
	assert.ErrorIs(t, err, ErrNoteBodyRequired)

	n, err := svc.AddNote(ctx, scope, p.ID, NoteRequest{Title: "Handover", Body: "Stable overnight."})
	require.NoError(t, err)
	assert.Equal(t, scope.UserID, n.AuthorID)

	page, err := svc.ListNotes(ctx, scope, p.ID, repo.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, svc.DeleteNote(ctx, scope, p.ID, n.ID))
	assert.ErrorIs(t, svc.DeleteNote(ctx, scope, p.ID, n.ID), ErrNoteNotFound)
}

func TestAttachments(t *testing.T) {
	svc, _, objects, scope := setup(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, scope, validRequest())
	require.NoError(t, err)

	_, err = svc.AddAttachment(ctx, scope, p.ID, AttachmentRequest{
		FileKey: s3.ObjectKey(uuid.New(), "attachment", "x.pdf"), FileName: "x.pdf",
	})
	assert.ErrorIs(t, err, ErrAttachmentKeyNotInOrg)

	key := s3.ObjectKey(scope.OrgID, "attachment", "chest-xray.png")
	a, err := svc.AddAttachment(ctx, scope, p.ID, AttachmentRequest{
		FileKey: key, FileName: "chest-xray.png", ContentType: "image/png", SizeBytes: 2048,
	})
	require.NoError(t, err)

	list, err := svc.ListAttachments(ctx, scope, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	dl, err := svc.AttachmentURL(ctx, scope, p.ID, a.ID)
	require.NoError(t, err)
	assert.Contains(t, dl.URL, key)
	assert.EqualValues(t, 900, dl.ExpiresIn)

	require.NoError(t, svc.DeleteAttachment(ctx, scope, p.ID, a.ID))
	assert.Equal(t, []string{key}, objects.deleted)
	_, err = svc.AttachmentURL(ctx, scope, p.ID, a.ID)
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
}
