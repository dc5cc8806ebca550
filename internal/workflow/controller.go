package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinica/intranet-api/pkg/validator"
)

const DefaultSearchLimit = 20

var (
	ErrNotLoggedIn          = errors.New("not logged in")
	ErrRecordNotFound       = errors.New("anamnesis not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidSearchTerm    = errors.New("invalid search term")
)

type Options struct {
	Records       RecordRepository
	Notifications NotificationRepository
	Session       SessionStore
	Directory     Directory
	// Searcher is optional; without it searches start at the local records.
	Searcher      PatientSearcher
	SearchLimit   int
	Now           func() time.Time
}

// Controller drives the anamnesis workflow for the logged-in role.
type Controller struct {
	records       RecordRepository
	notifications NotificationRepository
	session       SessionStore
	directory     Directory
	searcher      PatientSearcher
	searchLimit   int
	now           func() time.Time

	idMu   sync.Mutex
	lastID int64

	searchMu     sync.Mutex
	generation   uint64
	cancelSearch context.CancelFunc
	lastSearch   *SearchResult
}

func NewController(opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	return &Controller{
		records:       opts.Records,
		notifications: opts.Notifications,
		session:       opts.Session,
		directory:     opts.Directory,
		searcher:      opts.Searcher,
		searchLimit:   opts.SearchLimit,
		now:           opts.Now,
	}
}

// nextID returns millisecond timestamps, bumped when two calls collide.
func (c *Controller) nextID() int64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()

	id := c.now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}

func (c *Controller) Login(ctx context.Context, username, password string) (*User, error) {
	u, err := c.directory.Authenticate(ctx, username, password)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("workflow login failed")
		return nil, err
	}
	if err := c.session.SetCurrentUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	log.Info().Str("username", u.Username).Str("role", string(u.Role)).Msg("workflow login")
	return u, nil
}

// CurrentUser returns nil when nobody is logged in.
func (c *Controller) CurrentUser(ctx context.Context) (*User, error) {
	return c.session.CurrentUser(ctx)
}

func (c *Controller) requireUser(ctx context.Context) (*User, error) {
	u, err := c.session.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if u == nil {
		return nil, ErrNotLoggedIn
	}
	return u, nil
}

// VisibleSections lists the shared sections followed by the current role's own
// section. Without a session only the shared sections are visible.
func (c *Controller) VisibleSections(ctx context.Context) ([]string, error) {
	sections := SharedSections()

	u, err := c.session.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if u == nil {
		return sections, nil
	}
	if s, ok := u.Role.Section(); ok {
		sections = append(sections, s)
	}
	return sections, nil
}

// Submit saves fields as the current role's contribution. A zero recordID
// creates a new record; otherwise fields are merged into the existing one.
// Completing a pending section notifies the next role.
func (c *Controller) Submit(ctx context.Context, recordID int64, fields map[string]any) (*Record, error) {
	u, err := c.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()

	var rec *Record
	if recordID == 0 {
		rec = NewRecord(c.nextID(), cloneFields(fields), now)
	} else {
		existing, found, err := c.records.Get(ctx, recordID)
		if err != nil {
			return nil, fmt.Errorf("failed to load anamnesis: %w", err)
		}
		if !found {
			return nil, ErrRecordNotFound
		}
		existing.Data = cloneFields(existing.Data)
		existing.Merge(fields)
		existing.UpdatedAt = now
		rec = &existing
	}

	completed := rec.Complete(u.Role, now)

	if err := c.records.Upsert(ctx, *rec); err != nil {
		return nil, fmt.Errorf("failed to save anamnesis: %w", err)
	}

	if next, ok := u.Role.Next(); ok && completed {
		n := newHandoff(u.Role, next, rec.ID, now)
		if err := c.notifications.Upsert(ctx, n); err != nil {
			return nil, fmt.Errorf("failed to save notification: %w", err)
		}
	}

	log.Info().
		Int64("anamnesis_id", rec.ID).
		Str("role", string(u.Role)).
		Str("overall", string(rec.OverallStatus)).
		Msg("anamnesis submitted")
	return rec, nil
}

func (c *Controller) Records(ctx context.Context) ([]Record, error) {
	return c.records.All(ctx)
}

func (c *Controller) Record(ctx context.Context, id int64) (*Record, error) {
	rec, found, err := c.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

// Notifications returns the current role's notifications, newest first.
func (c *Controller) Notifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	u, err := c.requireUser(ctx)
	if err != nil {
		return nil, err
	}

	all, err := c.notifications.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0)
	for _, n := range all {
		if n.TargetRole != u.Role || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *Controller) MarkRead(ctx context.Context, id string) error {
	n, found, err := c.notifications.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	if n.Read {
		return nil
	}
	n.Read = true
	return c.notifications.Upsert(ctx, n)
}

// SeedIfEmpty stores the sample records when no record exists yet.
func (c *Controller) SeedIfEmpty(ctx context.Context) (bool, error) {
	existing, err := c.records.All(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	samples := sampleRecords(c.nextID(), c.now())
	// Upsert prepends, so insert in reverse to keep the first sample on top.
	for i := len(samples) - 1; i >= 0; i-- {
		if err := c.records.Upsert(ctx, samples[i]); err != nil {
			return false, err
		}
	}
	c.idMu.Lock()
	if last := samples[len(samples)-1].ID; last > c.lastID {
		c.lastID = last
	}
	c.idMu.Unlock()
	return true, nil
}

// Search looks patients up remotely, then among local records, then among the
// sample records. Starting a search cancels the previous one; only the latest
// search is kept as LastSearch and superseded results are marked Stale.
func (c *Controller) Search(ctx context.Context, name string) (SearchResult, error) {
	term, ok := validator.SanitizeString(name, validator.DefaultMaxLength)
	if !ok {
		return SearchResult{}, ErrInvalidSearchTerm
	}

	c.searchMu.Lock()
	if c.cancelSearch != nil {
		c.cancelSearch()
	}
	c.generation++
	gen := c.generation
	sctx, cancel := context.WithCancel(ctx)
	c.cancelSearch = cancel
	c.searchMu.Unlock()
	defer cancel()

	result, err := c.search(sctx, term)
	if err != nil {
		return SearchResult{}, err
	}
	result.Generation = gen

	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	if gen != c.generation {
		result.Stale = true
		return result, nil
	}
	c.cancelSearch = nil
	last := result
	c.lastSearch = &last
	return result, nil
}

func (c *Controller) search(ctx context.Context, term string) (SearchResult, error) {
	result := SearchResult{Term: term}

	if c.searcher != nil {
		patients, err := c.searcher.SearchPatients(ctx, term, c.searchLimit)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("term", term).Msg("remote patient search failed, using local records")
			result.RemoteErr = err.Error()
		case len(patients) > 0:
			result.Source = SourceRemote
			result.Patients = make([]PatientSummary, 0, len(patients))
			for _, p := range patients {
				result.Patients = append(result.Patients, fromPatient(p))
			}
			return result, nil
		}
	}

	records, err := c.records.All(ctx)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to load local records: %w", err)
	}
	if hits := matchRecords(records, term); len(hits) > 0 {
		result.Source = SourceLocal
		result.Patients = hits
		return result, nil
	}

	result.Source = SourceSample
	result.Patients = matchRecords(sampleRecords(0, c.now()), term)
	return result, nil
}

// LastSearch returns the result of the most recent search that was not
// superseded.
func (c *Controller) LastSearch() (SearchResult, bool) {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()
	if c.lastSearch == nil {
		return SearchResult{}, false
	}
	return *c.lastSearch, true
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ParseFields turns key=value pairs into a field map. "true" and "false"
// become booleans, matching checkbox inputs.
func ParseFields(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", p)
		}
		switch v {
		case "true":
			fields[k] = true
		case "false":
			fields[k] = false
		default:
			fields[k] = v
		}
	}
	return fields, nil
}
