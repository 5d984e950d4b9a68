package drive

import "context"

// Usage reports a principal's storage consumption.
type Usage struct {
	Used    int64   `json:"used"`
	Max     int64   `json:"max"`
	Percent float64 `json:"percent"`
}

// StorageUsage sums the sizes of the actor's active files.
func (s *DriveService) StorageUsage(ctx context.Context, actor Actor) (_ *Usage, err error) {
	defer observe("storage_usage", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	used, err := s.database.SumActiveFileSize(ctx, actor.UserID)
	if err != nil {
		return nil, upstream("computing storage usage", err)
	}
	return &Usage{
		Used:    used,
		Max:     s.opts.QuotaBytes,
		Percent: float64(used) / float64(s.opts.QuotaBytes) * 100,
	}, nil
}
