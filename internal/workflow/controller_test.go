package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/pkg/security"
)

type searchFunc func(ctx context.Context, name string, limit int) ([]model.Patient, error)

func (f searchFunc) SearchPatients(ctx context.Context, name string, limit int) ([]model.Patient, error) {
	return f(ctx, name, limit)
}

func newTestController(t *testing.T, searcher PatientSearcher) *Controller {
	t.Helper()
	dir, err := NewStaticDirectory(security.NewBcryptHasher(4), "")
	require.NoError(t, err)

	clock := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	return NewController(Options{
		Records:       NewMemoryRepository(RecordKey),
		Notifications: NewMemoryRepository(NotificationKey),
		Session:       NewMemorySession(),
		Directory:     dir,
		Searcher:      searcher,
		Now:           func() time.Time { return clock },
	})
}

func login(t *testing.T, c *Controller, username string) {
	t.Helper()
	_, err := c.Login(context.Background(), username, DefaultPassword)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	u, err := c.Login(ctx, " fono ", "12345")
	require.NoError(t, err)
	assert.Equal(t, &User{Username: "FONO", Role: RoleFono}, u)

	current, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, RoleFono, current.Role)

	_, err = c.Login(ctx, "TO", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = c.Login(ctx, "MEDICO", "12345")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	current, err = c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, RoleFono, current.Role, "failed login keeps the session")
}

func TestVisibleSections(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	sections, err := c.VisibleSections(ctx)
	require.NoError(t, err)
	assert.Equal(t, SharedSections(), sections)

	login(t, c, "PSICO")
	sections, err = c.VisibleSections(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(SharedSections(), SectionPsychology), sections)

	login(t, c, "ADMIN")
	sections, err = c.VisibleSections(ctx)
	require.NoError(t, err)
	assert.Equal(t, SharedSections(), sections)
}

func TestSubmitRequiresSession(t *testing.T) {
	c := newTestController(t, nil)
	_, err := c.Submit(context.Background(), 0, map[string]any{FieldPatientName: "Ana"})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSubmitAsTOOnFreshRecord(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()
	login(t, c, "TO")

	rec, err := c.Submit(ctx, 0, map[string]any{FieldPatientName: "Ana Silva"})
	require.NoError(t, err)

	assert.Equal(t, StatusDone, rec.TOStatus)
	assert.Equal(t, StatusPending, rec.FonoStatus)
	assert.Equal(t, StatusPending, rec.PsicoStatus)
	assert.Equal(t, OverallIncomplete, rec.OverallStatus)

	all, err := c.notifications.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, RoleFono, all[0].TargetRole)
	assert.Equal(t, rec.ID, all[0].AnamnesisID)
	assert.False(t, all[0].Read)
}

func TestAllRolesCompleteTheRecord(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	login(t, c, "TO")
	rec, err := c.Submit(ctx, 0, map[string]any{FieldPatientName: "Carlos Souza"})
	require.NoError(t, err)

	login(t, c, "FONO")
	_, err = c.Submit(ctx, rec.ID, map[string]any{"fono-obs": "ok"})
	require.NoError(t, err)

	login(t, c, "PSICO")
	final, err := c.Submit(ctx, rec.ID, map[string]any{"psico-obs": "ok"})
	require.NoError(t, err)

	assert.Equal(t, OverallComplete, final.OverallStatus)
	assert.Equal(t, "Carlos Souza", final.Field(FieldPatientName))
	assert.Equal(t, "ok", final.Field("fono-obs"))

	stored, err := c.Record(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, OverallComplete, stored.OverallStatus)

	records, err := c.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	all, err := c.notifications.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, RolePsico, all[0].TargetRole)
	assert.Equal(t, RoleFono, all[1].TargetRole)
}

func TestResubmitDoesNotNotifyAgain(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()
	login(t, c, "TO")

	rec, err := c.Submit(ctx, 0, nil)
	require.NoError(t, err)
	_, err = c.Submit(ctx, rec.ID, map[string]any{"to-obs": "revisado"})
	require.NoError(t, err)

	all, err := c.notifications.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSubmitUnknownRecord(t *testing.T) {
	c := newTestController(t, nil)
	login(t, c, "TO")

	_, err := c.Submit(context.Background(), 42, nil)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = c.Record(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSubmitDoesNotMutateStoredRecordBeforeSave(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()
	login(t, c, "TO")

	rec, err := c.Submit(ctx, 0, map[string]any{FieldPatientName: "Ana"})
	require.NoError(t, err)

	fields := map[string]any{FieldPatientName: "Ana Maria"}
	_, err = c.Submit(ctx, rec.ID, fields)
	require.NoError(t, err)
	fields[FieldPatientName] = "changed by caller"

	stored, err := c.Record(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", stored.Field(FieldPatientName))
}

func TestNotificationsForCurrentRole(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	login(t, c, "TO")
	_, err := c.Submit(ctx, 0, nil)
	require.NoError(t, err)
	_, err = c.Submit(ctx, 0, nil)
	require.NoError(t, err)

	mine, err := c.Notifications(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, mine)

	login(t, c, "FONO")
	mine, err = c.Notifications(ctx, false)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	require.NoError(t, c.MarkRead(ctx, mine[0].ID))
	unread, err := c.Notifications(ctx, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, mine[1].ID, unread[0].ID)

	assert.ErrorIs(t, c.MarkRead(ctx, "missing"), ErrNotificationNotFound)
}

func TestSeedIfEmpty(t *testing.T) {
	c := newTestController(t, nil)
	ctx := context.Background()

	seeded, err := c.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	records, err := c.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Ana Silva", records[0].Field(FieldPatientName))
	assert.Equal(t, "Mariana Costa", records[2].Field(FieldPatientName))

	seeded, err = c.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	login(t, c, "TO")
	rec, err := c.Submit(ctx, 0, nil)
	require.NoError(t, err)
	for _, r := range records {
		assert.NotEqual(t, r.ID, rec.ID, "new ids never collide with seeded ones")
	}
}

func TestSearchRemote(t *testing.T) {
	birth := time.Date(2018, 3, 15, 0, 0, 0, 0, time.UTC)
	c := newTestController(t, searchFunc(func(ctx context.Context, name string, limit int) ([]model.Patient, error) {
		assert.Equal(t, "ana", name)
		assert.Equal(t, DefaultSearchLimit, limit)
		return []model.Patient{{Code: 10, Name: "Ana Silva", BirthDate: &birth}}, nil
	}))

	res, err := c.Search(context.Background(), "  ana ")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	require.Len(t, res.Patients, 1)
	assert.Equal(t, int64(10), res.Patients[0].Code)
	assert.Equal(t, "15/03/2018", res.Patients[0].BirthDate)
	assert.False(t, res.Stale)

	last, ok := c.LastSearch()
	require.True(t, ok)
	assert.Equal(t, res, last)
}

func TestSearchFallbackChain(t *testing.T) {
	ctx := context.Background()

	t.Run("remote failure uses local records", func(t *testing.T) {
		c := newTestController(t, searchFunc(func(ctx context.Context, name string, limit int) ([]model.Patient, error) {
			return nil, errors.New("connection refused")
		}))
		login(t, c, "TO")
		_, err := c.Submit(ctx, 0, map[string]any{FieldPatientName: "Joana Prado", FieldMotherName: "Lúcia"})
		require.NoError(t, err)

		res, err := c.Search(ctx, "PRADO")
		require.NoError(t, err)
		assert.Equal(t, SourceLocal, res.Source)
		assert.Equal(t, "connection refused", res.RemoteErr)
		require.Len(t, res.Patients, 1)
		assert.Equal(t, "Lúcia", res.Patients[0].MotherName)
	})

	t.Run("empty remote result uses local records", func(t *testing.T) {
		c := newTestController(t, searchFunc(func(ctx context.Context, name string, limit int) ([]model.Patient, error) {
			return []model.Patient{}, nil
		}))
		_, err := c.SeedIfEmpty(ctx)
		require.NoError(t, err)

		res, err := c.Search(ctx, "souza")
		require.NoError(t, err)
		assert.Equal(t, SourceLocal, res.Source)
		require.Len(t, res.Patients, 1)
		assert.Equal(t, "Carlos Souza", res.Patients[0].Name)
		assert.NotZero(t, res.Patients[0].RecordID)
	})

	t.Run("no local match uses samples", func(t *testing.T) {
		c := newTestController(t, nil)

		res, err := c.Search(ctx, "costa")
		require.NoError(t, err)
		assert.Equal(t, SourceSample, res.Source)
		require.Len(t, res.Patients, 1)
		assert.Equal(t, "Mariana Costa", res.Patients[0].Name)

		res, err = c.Search(ctx, "zzz")
		require.NoError(t, err)
		assert.Equal(t, SourceSample, res.Source)
		assert.Empty(t, res.Patients)
	})
}

func TestSearchRejectsBlankTerm(t *testing.T) {
	c := newTestController(t, nil)
	_, err := c.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidSearchTerm)
}

func TestNewerSearchSupersedesOlder(t *testing.T) {
	started := make(chan struct{})
	var calls atomic.Int32

	c := newTestController(t, searchFunc(func(ctx context.Context, name string, limit int) ([]model.Patient, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []model.Patient{{Code: 2, Name: "Carlos Souza"}}, nil
	}))

	type outcome struct {
		res SearchResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := c.Search(context.Background(), "ana")
		first <- outcome{res, err}
	}()

	<-started
	second, err := c.Search(context.Background(), "carlos")
	require.NoError(t, err)
	assert.False(t, second.Stale)

	var old outcome
	select {
	case old = <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first search was not cancelled")
	}
	require.NoError(t, old.err)
	assert.True(t, old.res.Stale)
	assert.Less(t, old.res.Generation, second.Generation)

	last, ok := c.LastSearch()
	require.True(t, ok)
	assert.Equal(t, "carlos", last.Term)
}
