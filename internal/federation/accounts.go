package federation

import (
	"context"
	"strconv"

	"fedicache/internal/core"
)

const (
	accountEndpoint = "/api/v1/accounts/{id}"
	lookupEndpoint  = "/api/v1/accounts/lookup"
)

// https://docs.joinmastodon.org/methods/search/
func (c *Client) SearchAccounts(ctx context.Context, query string, resolve bool, limit int) ([]*core.Account, error) {
	res, err := checked(c.r(ctx).
		SetQueryParams(map[string]string{
			"q":       query,
			"type":    "accounts",
			"resolve": strconv.FormatBool(resolve),
			"limit":   strconv.Itoa(limit),
		}).
		SetResult(&searchResult{}).
		Get(searchEndpoint))
	if err != nil {
		return nil, err
	}

	return res.Result().(*searchResult).Accounts, nil
}

// https://docs.joinmastodon.org/methods/accounts/#get
func (c *Client) FetchAccountByID(ctx context.Context, id string) (*core.Account, error) {
	res, err := checked(c.r(ctx).
		SetPathParam("id", id).
		SetResult(&core.Account{}).
		Get(accountEndpoint))
	if err != nil {
		return nil, err
	}

	return res.Result().(*core.Account), nil
}

// https://docs.joinmastodon.org/methods/accounts/#lookup
func (c *Client) LookupAccountByHandle(ctx context.Context, handle string) (*core.Account, error) {
	res, err := checked(c.r(ctx).
		SetQueryParam("acct", handle).
		SetResult(&core.Account{}).
		Get(lookupEndpoint))
	if err != nil {
		return nil, err
	}

	return res.Result().(*core.Account), nil
}
