package todocapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yanqian/todoc/internal/domain/record"
)

type recordsResponse struct {
	Records []json.RawMessage `json:"records"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
}

// RecordsByDate returns every record on date.
func (c *Client) RecordsByDate(ctx context.Context, kidID int64, date string) ([]record.Record, error) {
	var out recordsResponse
	path := fmt.Sprintf("/kids/%d/records/date/%s", kidID, url.PathEscape(date))
	if err := c.do(ctx, "records.by_date", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return c.decodeRecords(out.Records), nil
}

// ListRecords returns one page of the record listing.
func (c *Client) ListRecords(ctx context.Context, kidID int64, q record.ListQuery) ([]record.Record, error) {
	query := url.Values{}
	if q.RecordType != "" {
		query.Set("record_type", string(q.RecordType))
	}
	if q.StartDate != "" {
		query.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		query.Set("end_date", q.EndDate)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	var out recordsResponse
	if err := c.do(ctx, "records.list", http.MethodGet, fmt.Sprintf("/kids/%d/records", kidID), query, nil, &out); err != nil {
		return nil, err
	}
	return c.decodeRecords(out.Records), nil
}

// CreateRecord posts a new record of rec's category.
func (c *Client) CreateRecord(ctx context.Context, kidID int64, rec record.Record) (record.Record, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/kids/%d/records/%s", kidID, rec.Type())
	if err := c.do(ctx, "records.create", http.MethodPost, path, nil, rec, &raw); err != nil {
		return nil, err
	}
	return c.decodeWritten(raw, rec)
}

// UpdateRecord patches an existing record.
func (c *Client) UpdateRecord(ctx context.Context, kidID int64, rec record.Record) (record.Record, error) {
	if rec.Base().ID == 0 {
		return nil, errors.New("update record: id is required")
	}
	var raw json.RawMessage
	path := fmt.Sprintf("/kids/%d/records/%s/%d", kidID, rec.Type(), rec.Base().ID)
	if err := c.do(ctx, "records.update", http.MethodPatch, path, nil, rec, &raw); err != nil {
		return nil, err
	}
	return c.decodeWritten(raw, rec)
}

// DeleteRecord removes a record.
func (c *Client) DeleteRecord(ctx context.Context, kidID, recordID int64) error {
	return c.do(ctx, "records.delete", http.MethodDelete, fmt.Sprintf("/kids/%d/records/%d", kidID, recordID), nil, nil, nil)
}

func (c *Client) decodeRecords(raws []json.RawMessage) []record.Record {
	out := make([]record.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := record.Decode(raw)
		if err != nil {
			c.logger.Warn("skipping undecodable record", "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// decodeWritten reads the saved record, falling back to what was sent when the
// API answers without a body.
func (c *Client) decodeWritten(raw json.RawMessage, sent record.Record) (record.Record, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return sent, nil
	}
	rec, err := record.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode saved record: %w", err)
	}
	return rec, nil
}
