package library

// SyncError is one per-folder failure captured during a run. It never aborts
// the run; the folder is simply retried on the next pass.
type SyncError struct {
	Folder string `json:"folder"`
	Error  string `json:"error"`
}

// SyncReport summarizes one synchronization pass. It is returned to the
// caller and discarded, never persisted.
type SyncReport struct {
	Total     int         `json:"total"`
	Processed int         `json:"processed"`
	Added     int         `json:"added"`
	Updated   int         `json:"updated"`
	Removed   int         `json:"removed"`
	Errors    []SyncError `json:"errors"`
	Reset     bool        `json:"reset,omitempty"`
}

func newReport() *SyncReport {
	return &SyncReport{Errors: []SyncError{}}
}

func (r *SyncReport) fail(folder string, err error) {
	r.Errors = append(r.Errors, SyncError{Folder: folder, Error: err.Error()})
}
