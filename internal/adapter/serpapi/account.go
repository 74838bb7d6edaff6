package serpapi

import (
	"context"
	"net/url"
)

// Account summarizes the /account.json response.
type Account struct {
	Email            string `json:"account_email"`
	PlanName         string `json:"plan_name"`
	SearchesPerMonth int    `json:"searches_per_month"`
	SearchesLeft     int    `json:"plan_searches_left"`
	ThisMonthUsage   int    `json:"this_month_usage"`
}

// Account fetches plan and quota information for the configured key. It is
// free of search credits and backs the doctor command.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	resp, err := c.get(ctx, accountEngine, accountPath, url.Values{})
	if err != nil {
		return nil, err
	}
	var acct Account
	if err := decode(accountEngine, resp, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}
