package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultQuotaBytes       int64 = 100 * 1024 * 1024
	DefaultMaxUploadBytes   int64 = 50 * 1024 * 1024
	DefaultDownloadURLTTL         = time.Hour
	DefaultPageLimit              = 20
	DefaultSearchLimit            = 10
	DefaultMaxPageLimit           = 100
	DefaultMaxDepth               = 64
	maxNameLength                 = 255
	linkTokenAttempts             = 3
)

// Options holds the limits and policies of a DriveService.
type Options struct {
	QuotaBytes         int64         // per-principal ceiling on active file bytes
	MaxUploadBytes     int64         // largest accepted upload
	DownloadURLTTL     time.Duration // lifetime of signed download URLs
	DefaultPageLimit   int           // limit used when a listing asks for none
	DefaultSearchLimit int           // limit used when a search asks for none
	MaxPageLimit       int           // upper bound on any listing limit
	MaxDepth           int           // bound on every parent-chain walk

	// CascadeTrash makes trash, restore and purge of a folder apply to its
	// whole subtree.
	CascadeTrash bool

	// RequireTrashBeforePurge rejects purging an active resource.
	RequireTrashBeforePurge bool
}

// DefaultOptions returns the reference limits with trash-before-purge on and
// cascading off.
func DefaultOptions() Options {
	return Options{
		QuotaBytes:              DefaultQuotaBytes,
		MaxUploadBytes:          DefaultMaxUploadBytes,
		DownloadURLTTL:          DefaultDownloadURLTTL,
		DefaultPageLimit:        DefaultPageLimit,
		DefaultSearchLimit:      DefaultSearchLimit,
		MaxPageLimit:            DefaultMaxPageLimit,
		MaxDepth:                DefaultMaxDepth,
		CascadeTrash:            false,
		RequireTrashBeforePurge: true,
	}
}

// withDefaults replaces unset numeric fields with their defaults.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.QuotaBytes <= 0 {
		o.QuotaBytes = d.QuotaBytes
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = d.MaxUploadBytes
	}
	if o.DownloadURLTTL <= 0 {
		o.DownloadURLTTL = d.DownloadURLTTL
	}
	if o.DefaultPageLimit <= 0 {
		o.DefaultPageLimit = d.DefaultPageLimit
	}
	if o.MaxPageLimit <= 0 {
		o.MaxPageLimit = d.MaxPageLimit
	}
	if o.DefaultPageLimit > o.MaxPageLimit {
		o.DefaultPageLimit = o.MaxPageLimit
	}
	if o.DefaultSearchLimit <= 0 {
		o.DefaultSearchLimit = d.DefaultSearchLimit
	}
	if o.DefaultSearchLimit > o.MaxPageLimit {
		o.DefaultSearchLimit = o.MaxPageLimit
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	return o
}

// DriveService is the engine behind every folder, file, trash and sharing
// operation. It holds no request state and is safe for concurrent use.
type DriveService struct {
	database Database
	store    ObjectStore
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	tokens   TokenGenerator
	opts     Options
}

// NewDriveService creates a new DriveService with the provided dependencies.
func NewDriveService(database Database, store ObjectStore, logger Logger, clock Clock, idgen IDGenerator, tokens TokenGenerator, opts Options) *DriveService {
	return &DriveService{
		database: database,
		store:    store,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		tokens:   tokens,
		opts:     opts.withDefaults(),
	}
}

// Options returns the effective options of the service.
func (s *DriveService) Options() Options {
	return s.opts
}

// now returns the service clock in UTC, truncated to what the database keeps.
func (s *DriveService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// upstream classifies a failed persistence or object-store call. Errors that
// already carry a kind keep it.
func upstream(msg string, err error) error {
	if hasKind(err) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, msg, err)
}

func hasKind(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return true
		}
	}
	return false
}

// requireUser rejects actors without an authenticated principal.
func requireUser(actor Actor) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: sign-in required", ErrUnauthenticated)
	}
	return nil
}

// validateName checks a user-supplied file or folder name and returns it
// trimmed.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: name is required", ErrBadRequest)
	case !utf8.ValidString(name):
		return "", fmt.Errorf("%w: name is not valid UTF-8", ErrBadRequest)
	case utf8.RuneCountInString(name) > maxNameLength:
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrBadRequest, maxNameLength)
	case strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: name contains a NUL byte", ErrBadRequest)
	}
	return name, nil
}

// Page selects a window of a sorted listing.
type Page struct {
	Sort   SortKey
	Order  SortOrder
	Limit  int
	Offset int
}

// normalize clamps the window to the service limits. A non-positive limit
// selects the default.
func (s *DriveService) normalize(p Page) Page {
	if p.Limit <= 0 {
		p.Limit = s.opts.DefaultPageLimit
	}
	if p.Limit > s.opts.MaxPageLimit {
		p.Limit = s.opts.MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.Sort = ParseSortKey(string(p.Sort))
	p.Order = ParseSortOrder(string(p.Order))
	return p
}

// Ping verifies the object store. The database is checked at startup by the
// migration status check.
func (s *DriveService) Ping(ctx context.Context) error {
	if err := s.store.ValidateSetup(ctx); err != nil {
		return upstream("validating object store", err)
	}
	return nil
}
