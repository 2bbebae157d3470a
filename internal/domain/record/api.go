package record

import "context"

// ListQuery filters the paginated record listing. The listing is ordered by
// record_date then created_at, newest first.
type ListQuery struct {
	RecordType RecordType
	StartDate  string
	EndDate    string
	Limit      int
	Page       int
}

// Reader fetches records from the records API.
type Reader interface {
	RecordsByDate(ctx context.Context, kidID int64, date string) ([]Record, error)
	ListRecords(ctx context.Context, kidID int64, q ListQuery) ([]Record, error)
}

// Writer mutates records through the records API.
type Writer interface {
	CreateRecord(ctx context.Context, kidID int64, rec Record) (Record, error)
	UpdateRecord(ctx context.Context, kidID int64, rec Record) (Record, error)
	DeleteRecord(ctx context.Context, kidID, recordID int64) error
}

// API is the records collaborator.
type API interface {
	Reader
	Writer
}
