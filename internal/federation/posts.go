package federation

import (
	"context"
	"net/url"
	"strconv"

	"fedicache/internal/core"
)

const (
	searchEndpoint        = "/api/v2/search"
	statusEndpoint        = "/api/v1/statuses/{id}"
	relationshipsEndpoint = "/api/v1/accounts/relationships"
)

type searchResult struct {
	Accounts []*core.Account `json:"accounts"`
	Statuses []*core.Post    `json:"statuses"`
}

// https://docs.joinmastodon.org/methods/search/
func (c *Client) SearchPosts(ctx context.Context, query string, resolve bool, limit int) ([]*core.Post, error) {
	res, err := checked(c.r(ctx).
		SetQueryParams(map[string]string{
			"q":       query,
			"type":    "statuses",
			"resolve": strconv.FormatBool(resolve),
			"limit":   strconv.Itoa(limit),
		}).
		SetResult(&searchResult{}).
		Get(searchEndpoint))
	if err != nil {
		return nil, err
	}

	return res.Result().(*searchResult).Statuses, nil
}

// https://docs.joinmastodon.org/methods/statuses/#get
func (c *Client) FetchPostByID(ctx context.Context, id string) (*core.Post, error) {
	res, err := checked(c.r(ctx).
		SetPathParam("id", id).
		SetResult(&core.Post{}).
		Get(statusEndpoint))
	if err != nil {
		return nil, err
	}

	return res.Result().(*core.Post), nil
}

// FetchRemoteOriginPost asks the origin server itself for its copy of the
// post. The request carries no credentials.
func (c *Client) FetchRemoteOriginPost(ctx context.Context, originHost, originID string) (*core.Post, error) {
	res, err := checked(c.public.R().
		WithContext(ctx).
		SetPathParam("id", originID).
		SetResult(&core.Post{}).
		Get("https://" + originHost + statusEndpoint))
	if err != nil {
		return nil, err
	}

	return res.Result().(*core.Post), nil
}

// https://docs.joinmastodon.org/methods/accounts/#relationships
func (c *Client) FetchRelationships(ctx context.Context, accountIDs []string) ([]*core.Relationship, error) {
	res, err := checked(c.r(ctx).
		SetQueryParamsFromValues(url.Values{
			"id[]": accountIDs,
		}).
		SetResult(&[]*core.Relationship{}).
		Get(relationshipsEndpoint))
	if err != nil {
		return nil, err
	}

	return *res.Result().(*[]*core.Relationship), nil
}
