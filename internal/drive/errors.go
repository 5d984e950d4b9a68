package drive

import "errors"

// Error kinds. Every error returned by DriveService wraps exactly one of these;
// use KindOf or errors.Is to classify.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")
	ErrUpstream        = errors.New("upstream failure")
	ErrInternal        = errors.New("internal error")
)

var (
	// ErrVersionConflict is returned when a file changed between read and write.
	ErrVersionConflict = errors.Join(ErrConflict, errors.New("file was modified concurrently"))

	// ErrFolderNotEmpty is returned when purging a folder that still has children
	// and cascading is disabled.
	ErrFolderNotEmpty = errors.Join(ErrBadRequest, errors.New("folder is not empty"))

	// ErrFolderHasActiveItems is returned when a cascading purge would delete
	// a descendant that is not in the trash.
	ErrFolderHasActiveItems = errors.Join(ErrBadRequest, errors.New("folder contains items that are not in the trash"))
)

// Kind names an error category.
type Kind string

const (
	KindBadRequest      Kind = "bad_request"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindQuotaExceeded   Kind = "quota_exceeded"
	KindUpstream        Kind = "upstream_failure"
	KindInternal        Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrBadRequest, KindBadRequest},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
	{ErrQuotaExceeded, KindQuotaExceeded},
	{ErrUpstream, KindUpstream},
	{ErrInternal, KindInternal},
}

// KindOf classifies err. Errors that wrap none of the sentinels are Internal.
// A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
