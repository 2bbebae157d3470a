package todocapi

import (
	"context"
	"fmt"
	"net/http"
)

// Kid is a registered child.
type Kid struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	BirthDate   string `json:"birth_date"`
	Gender      string `json:"gender,omitempty"`
	AgeInMonths *int   `json:"age_in_months,omitempty"`
}

type kidsResponse struct {
	Kids  []Kid `json:"kids"`
	Total int   `json:"total"`
}

// Kids lists the user's children in registration order.
func (c *Client) Kids(ctx context.Context) ([]Kid, error) {
	var out kidsResponse
	if err := c.do(ctx, "kids.list", http.MethodGet, "/kids", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Kids, nil
}

// DefaultKid returns the first registered kid's id, or 0 when there is none.
func (c *Client) DefaultKid(ctx context.Context) (int64, error) {
	kids, err := c.Kids(ctx)
	if err != nil {
		return 0, err
	}
	if len(kids) == 0 {
		return 0, nil
	}
	return kids[0].ID, nil
}

type monthlyResponse struct {
	Dates map[string]bool `json:"dates"`
}

// MonthlyDates returns which dates of the month have records.
func (c *Client) MonthlyDates(ctx context.Context, kidID int64, year, month int) (map[string]bool, error) {
	var out monthlyResponse
	path := fmt.Sprintf("/kids/%d/records/monthly/%d/%d", kidID, year, month)
	if err := c.do(ctx, "records.monthly", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Dates == nil {
		out.Dates = map[string]bool{}
	}
	return out.Dates, nil
}
