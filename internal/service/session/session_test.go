package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/realtime"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/crypto"
	simredis "github.com/Alijeyrad/simward_backend/pkg/redis"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
	"github.com/Alijeyrad/simward_backend/pkg/util/codes"
)

type fakeStore struct {
	sessions     map[uuid.UUID]*repo.Session
	participants map[uuid.UUID]map[uuid.UUID]repo.Participant
	hashLookups  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:     map[uuid.UUID]*repo.Session{},
		participants: map[uuid.UUID]map[uuid.UUID]repo.Participant{},
	}
}

func (f *fakeStore) Create(_ context.Context, s *repo.Session) error {
	s.ID = uuid.New()
	c := *s
	f.sessions[s.ID] = &c
	return nil
}

func (f *fakeStore) Get(_ context.Context, orgID, id uuid.UUID) (*repo.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.OrganisationID != orgID || s.DeletedAt != nil {
		return nil, repo.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeStore) GetAny(_ context.Context, id uuid.UUID) (*repo.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.DeletedAt != nil {
		return nil, repo.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (f *fakeStore) GetByJoinCodeHash(_ context.Context, orgID uuid.UUID, hash string) (*repo.Session, error) {
	f.hashLookups++
	for _, s := range f.sessions {
		if s.JoinCodeHash == hash && s.OrganisationID == orgID && s.DeletedAt == nil && s.Status != repo.SessionStatusEnded {
			c := *s
			return &c, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, orgID uuid.UUID, flt repo.SessionFilter, _ repo.Page) ([]repo.Session, int, error) {
	var out []repo.Session
	for _, s := range f.sessions {
		if s.OrganisationID == orgID && s.DeletedAt == nil && (flt.Status == "" || s.Status == flt.Status) && (flt.Kind == "" || s.Kind == flt.Kind) {
			out = append(out, *s)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Update(_ context.Context, s *repo.Session) error {
	if _, ok := f.sessions[s.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *s
	f.sessions[s.ID] = &c
	return nil
}

func (f *fakeStore) Start(_ context.Context, id uuid.UUID, at time.Time) error {
	s, ok := f.sessions[id]
	if !ok || s.Status != repo.SessionStatusScheduled {
		return repo.ErrNotFound
	}
	s.Status, s.StartedAt = repo.SessionStatusLive, &at
	return nil
}

func (f *fakeStore) End(_ context.Context, id uuid.UUID, at time.Time) error {
	s, ok := f.sessions[id]
	if !ok || s.Status != repo.SessionStatusLive {
		return repo.ErrNotFound
	}
	s.Status, s.EndedAt = repo.SessionStatusEnded, &at
	return nil
}

func (f *fakeStore) SetVisibility(_ context.Context, id uuid.UUID, v repo.Visibility) error {
	s, ok := f.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Visibility = repo.NewJSONB(v)
	return nil
}

func (f *fakeStore) SoftDelete(_ context.Context, orgID, id uuid.UUID) error {
	s, ok := f.sessions[id]
	if !ok || s.OrganisationID != orgID {
		return repo.ErrNotFound
	}
	now := time.Now()
	s.DeletedAt = &now
	return nil
}

func (f *fakeStore) AddParticipant(_ context.Context, p *repo.Participant) error {
	if f.participants[p.SessionID] == nil {
		f.participants[p.SessionID] = map[uuid.UUID]repo.Participant{}
	}
	f.participants[p.SessionID][p.UserID] = *p
	return nil
}

func (f *fakeStore) GetParticipant(_ context.Context, sessionID, userID uuid.UUID) (*repo.Participant, error) {
	p, ok := f.participants[sessionID][userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) ListParticipants(_ context.Context, sessionID uuid.UUID) ([]repo.Participant, error) {
	var out []repo.Participant
	for _, p := range f.participants[sessionID] {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) RemoveParticipant(_ context.Context, sessionID, userID uuid.UUID) error {
	if _, ok := f.participants[sessionID][userID]; !ok {
		return repo.ErrNotFound
	}
	delete(f.participants[sessionID], userID)
	return nil
}

type fakePatients map[uuid.UUID]*repo.Patient

func (f fakePatients) Get(_ context.Context, orgID, id uuid.UUID) (*repo.Patient, error) {
	p, ok := f[id]
	if !ok || p.OrganisationID != orgID {
		return nil, repo.ErrNotFound
	}
	return p, nil
}

type fakeUsers map[uuid.UUID]*repo.User

func (f fakeUsers) Get(_ context.Context, id uuid.UUID) (*repo.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

type broadcast struct {
	SessionID uuid.UUID
	Event     string
	Payload   any
}

type fakeHub struct {
	mu   sync.Mutex
	sent []broadcast
}

func (h *fakeHub) Broadcast(_ context.Context, sessionID uuid.UUID, event string, payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, broadcast{sessionID, event, payload})
	return nil
}

type fixture struct {
	svc     Service
	store   *fakeStore
	hub     *fakeHub
	pub     *events.Recorder
	mr      *miniredis.Miniredis
	faculty *reqctx.Scope
	student *reqctx.Scope
	patient uuid.UUID
	users   fakeUsers
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	orgID := uuid.New()
	faculty := &reqctx.Scope{UserID: uuid.New(), OrgID: orgID, Role: authorize.UserRoleFaculty}
	student := &reqctx.Scope{UserID: uuid.New(), OrgID: orgID, Role: authorize.UserRoleUser}
	patientID := uuid.New()
	users := fakeUsers{
		student.UserID: {ID: student.UserID, OrganisationID: &orgID, FirstName: "Ada", LastName: "Lee"},
	}

	store, hub, pub := newFakeStore(), &fakeHub{}, &events.Recorder{}
	svc := New(store,
		fakePatients{patientID: {ID: patientID, OrganisationID: orgID}},
		users,
		codes.NewGenerator(codes.DefaultConfig()),
		simredis.NewJoinCodeCache(rdb, 12*time.Hour),
		hub, pub)
	return &fixture{svc: svc, store: store, hub: hub, pub: pub, mr: mr, faculty: faculty, student: student, patient: patientID, users: users}
}

func (f *fixture) create(t *testing.T, req CreateRequest) *Created {
	t.Helper()
	c, err := f.svc.Create(context.Background(), f.faculty, req)
	require.NoError(t, err)
	return c
}

func TestCreate(t *testing.T) {
	f := setup(t)
	c := f.create(t, CreateRequest{Name: " Sepsis sim ", PatientID: &f.patient})

	assert.Equal(t, "Sepsis sim", c.Name)
	assert.Equal(t, repo.SessionKindLive, c.Kind)
	assert.Equal(t, repo.SessionStatusScheduled, c.Status)
	assert.Len(t, c.JoinCode, codes.DefaultJoinCodeLength)
	assert.Equal(t, crypto.Hash(c.JoinCode), c.JoinCodeHash)
	assert.Len(t, c.Visibility.V, len(Panels))
	assert.True(t, f.mr.Exists(simredis.KeyJoinCode(f.faculty.OrgID, c.JoinCodeHash)))

	p, err := f.store.GetParticipant(context.Background(), c.ID, f.faculty.UserID)
	require.NoError(t, err)
	assert.Equal(t, RoleFacilitator, p.Role)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	missing := uuid.New()

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"no name", CreateRequest{}, ErrNameRequired},
		{"bad kind", CreateRequest{Name: "x", Kind: "hybrid"}, ErrInvalidKind},
		{"vr settings on live", CreateRequest{Name: "x", VRSettings: map[string]any{"scene": "ward"}}, ErrVRSettingsVirtualOnly},
		{"unknown patient", CreateRequest{Name: "x", PatientID: &missing}, ErrPatientNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.faculty, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	c := f.create(t, CreateRequest{Name: "VR", Kind: repo.SessionKindVirtual, VRSettings: map[string]any{"scene": "resus"}})
	assert.Equal(t, "resus", c.VRSettings.V["scene"])
}

func TestJoinByCode(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.create(t, CreateRequest{Name: "Handover"})

	sess, err := f.svc.Join(ctx, f.student, " "+c.JoinCode[:3]+"-"+c.JoinCode[3:]+" ")
	require.NoError(t, err)
	assert.Equal(t, c.ID, sess.ID)
	assert.Zero(t, f.store.hashLookups, "served from the cache")

	p, err := f.store.GetParticipant(ctx, c.ID, f.student.UserID)
	require.NoError(t, err)
	assert.Equal(t, RoleParticipant, p.Role)

	f.mr.FlushAll()
	_, err = f.svc.Join(ctx, f.student, c.JoinCode)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.hashLookups, "falls back to the database")

	other := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New()}
	_, err = f.svc.Join(ctx, other, c.JoinCode)
	assert.ErrorIs(t, err, ErrInvalidJoinCode)

	_, err = f.svc.Join(ctx, f.student, "NOPE42")
	assert.ErrorIs(t, err, ErrInvalidJoinCode)
}

func TestStartEndLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.create(t, CreateRequest{Name: "Deteriorating patient"})

	_, err := f.svc.End(ctx, f.faculty, c.ID)
	assert.ErrorIs(t, err, ErrNotLive)

	live, err := f.svc.Start(ctx, f.faculty, c.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.SessionStatusLive, live.Status)
	assert.NotNil(t, live.StartedAt)

	_, err = f.svc.Start(ctx, f.faculty, c.ID)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	ended, err := f.svc.End(ctx, f.faculty, c.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.SessionStatusEnded, ended.Status)
	assert.False(t, f.mr.Exists(simredis.KeyJoinCode(f.faculty.OrgID, c.JoinCodeHash)))

	require.Len(t, f.hub.sent, 2)
	assert.Equal(t, realtime.EventSessionStarted, f.hub.sent[0].Event)
	assert.Equal(t, realtime.EventSessionEnded, f.hub.sent[1].Event)
	assert.Equal(t, []string{
		events.Subject(events.EntitySession, events.EventStarted, c.ID),
		events.Subject(events.EntitySession, events.EventEnded, c.ID),
	}, f.pub.Subjects())

	_, err = f.svc.Join(ctx, f.student, c.JoinCode)
	assert.ErrorIs(t, err, ErrInvalidJoinCode)

	_, err = f.svc.SetVisibility(ctx, f.faculty, c.ID, repo.Visibility{"notes": false})
	assert.ErrorIs(t, err, ErrEnded)
}

func TestSetVisibilityMergesAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.create(t, CreateRequest{Name: "AKI"})

	v, err := f.svc.SetVisibility(ctx, f.faculty, c.ID, repo.Visibility{"investigations": false})
	require.NoError(t, err)
	assert.False(t, v["investigations"])
	assert.True(t, v["observations"])

	v, err = f.svc.SetVisibility(ctx, f.faculty, c.ID, repo.Visibility{"notes": false})
	require.NoError(t, err)
	assert.False(t, v["investigations"], "earlier toggles persist")
	assert.False(t, v["notes"])

	_, err = f.svc.SetVisibility(ctx, f.faculty, c.ID, repo.Visibility{"billing": true})
	assert.ErrorIs(t, err, ErrInvalidPanel)

	require.Len(t, f.hub.sent, 2)
	assert.Equal(t, realtime.EventToggleVisibility, f.hub.sent[1].Event)
	assert.Equal(t, v, f.hub.sent[1].Payload)
}

func TestParticipants(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.create(t, CreateRequest{Name: "Ward round"})

	_, err := f.svc.AddParticipant(ctx, f.faculty, c.ID, f.student.UserID, "coach")
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = f.svc.AddParticipant(ctx, f.faculty, c.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	p, err := f.svc.AddParticipant(ctx, f.faculty, c.ID, f.student.UserID, RoleObserver)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)

	list, err := f.svc.ListParticipants(ctx, f.faculty, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	ok, err := f.svc.CanJoinRoom(ctx, f.student, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.svc.RemoveParticipant(ctx, f.faculty, c.ID, f.student.UserID))
	assert.ErrorIs(t, f.svc.RemoveParticipant(ctx, f.faculty, c.ID, f.student.UserID), ErrParticipantNotFound)

	ok, err = f.svc.CanJoinRoom(ctx, f.student, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.CanJoinRoom(ctx, f.faculty, c.ID)
	require.NoError(t, err)
	assert.True(t, ok, "staff may always join")
}

func TestCanJoinRoomSuperadmin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.create(t, CreateRequest{Name: "Ward round"})
	root := &reqctx.Scope{UserID: uuid.New(), Role: authorize.UserRoleSuperAdmin, IsSuperAdmin: true}

	ok, err := f.svc.CanJoinRoom(ctx, root, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.CanJoinRoom(ctx, root, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	outsider := &reqctx.Scope{UserID: uuid.New(), OrgID: uuid.New(), Role: authorize.UserRoleFaculty}
	ok, err = f.svc.CanJoinRoom(ctx, outsider, c.ID)
	require.NoError(t, err)
	assert.False(t, ok, "other organisations stay out")

	_, err = f.svc.Start(ctx, f.faculty, c.ID)
	require.NoError(t, err)
	_, err = f.svc.End(ctx, f.faculty, c.ID)
	require.NoError(t, err)
	ok, err = f.svc.CanJoinRoom(ctx, root, c.ID)
	require.NoError(t, err)
	assert.False(t, ok, "ended sessions are closed")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.create(t, CreateRequest{Name: "Old"})

	require.NoError(t, f.svc.Delete(ctx, f.faculty, c.ID))
	_, err := f.svc.Get(ctx, f.faculty, c.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	list, err := f.svc.List(ctx, f.faculty, ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}
