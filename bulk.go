package igvf

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// maxPathQueryLengthEstimate is the assumed per-path contribution to a
// bulk-search query string. Object paths vary in length, so grouping works
// from this estimate rather than measuring each path.
const maxPathQueryLengthEstimate = 50

// MultiObjectOptions adjusts GetMultipleObjects.
type MultiObjectOptions struct {
	// FilterErrors drops the per-path error results, keeping only the
	// successfully fetched objects in their original relative order.
	FilterErrors bool
}

// GetMultipleObjects requests every path concurrently with one request per
// path, returning one Result per path in input order. An empty input yields
// an empty slice without any network traffic.
func (c *Client) GetMultipleObjects(ctx context.Context, paths []string, options MultiObjectOptions) []ObjectResult {
	if len(paths) == 0 {
		return []ObjectResult{}
	}

	results := make([]ObjectResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			results[i] = c.GetObject(ctx, path)
		}(i, path)
	}
	wg.Wait()

	if !options.FilterErrors {
		return results
	}

	filtered := make([]ObjectResult, 0, len(results))
	for _, r := range results {
		if r.IsOk() {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// GetMultipleObjectsBulk fetches many objects through the search endpoint
// instead of one request per path, batching paths into as few requests as
// the URL-length budget allows. Fields limits the properties returned per
// object; types, when given, constrain the search to those object types.
//
// All groups are requested concurrently. The returned objects preserve group
// order but not the caller's path order; within one search response the
// provider decides ordering. The first failing group, in group order, makes
// the whole call the Err variant with no partial data.
func (c *Client) GetMultipleObjectsBulk(ctx context.Context, paths []string, fields []string, types ...string) ObjectsResult {
	if len(paths) == 0 {
		return Ok[[]DataObject, *ErrorObject]([]DataObject{})
	}

	fixedParts := make([]string, 0, len(types)+len(fields))
	for _, t := range types {
		fixedParts = append(fixedParts, "type="+url.QueryEscape(t))
	}
	fieldQueryLength := 0
	for _, field := range fields {
		part := "field=" + url.QueryEscape(field)
		fieldQueryLength += len(part) + 1
		fixedParts = append(fixedParts, part)
	}

	groups := pathsIntoPathGroups(paths, c.maxURLLength, fieldQueryLength)
	c.metrics.RecordBulkGroups(len(groups))

	results := make([]ObjectsResult, len(groups))
	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(i int, group []string) {
			defer wg.Done()
			results[i] = c.searchQuick(ctx, group, fixedParts)
		}(i, group)
	}
	wg.Wait()

	collected := CollectResults(results)
	if collected.IsErr() {
		return Err[[]DataObject, *ErrorObject](collected.UnwrapErr())
	}

	var objects []DataObject
	for _, groupObjects := range collected.Unwrap() {
		objects = append(objects, groupObjects...)
	}
	if objects == nil {
		objects = []DataObject{}
	}
	return Ok[[]DataObject, *ErrorObject](objects)
}

// searchQuick requests one group of paths through the search endpoint and
// extracts the matched objects from the response.
func (c *Client) searchQuick(ctx context.Context, group []string, fixedParts []string) ObjectsResult {
	parts := make([]string, 0, len(fixedParts)+len(group)+1)
	parts = append(parts, fixedParts...)
	for _, path := range group {
		parts = append(parts, "@id="+url.QueryEscape(path))
	}
	parts = append(parts, fmt.Sprintf("limit=%d", len(group)))

	result := c.GetObject(ctx, "/search-quick/?"+strings.Join(parts, "&"))
	if result.IsErr() {
		return Err[[]DataObject, *ErrorObject](result.UnwrapErr())
	}
	return Ok[[]DataObject, *ErrorObject](graphFromObject(result.Unwrap()))
}

// graphFromObject pulls the @graph member list out of a search response.
func graphFromObject(obj DataObject) []DataObject {
	raw, ok := obj["@graph"].([]any)
	if !ok {
		return []DataObject{}
	}
	objects := make([]DataObject, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			objects = append(objects, DataObject(m))
		}
	}
	return objects
}

// pathsIntoPathGroups splits paths into consecutive groups sized so that
// each group's query string stays under the URL-length budget, after
// reserving adjustment characters for the fixed portion of the query.
func pathsIntoPathGroups(paths []string, maxURLLength, adjustment int) [][]string {
	maxGroupSize := (maxURLLength - adjustment) / maxPathQueryLengthEstimate
	if maxGroupSize < 1 {
		maxGroupSize = 1
	}

	var groups [][]string
	for start := 0; start < len(paths); start += maxGroupSize {
		end := start + maxGroupSize
		if end > len(paths) {
			end = len(paths)
		}
		groups = append(groups, paths[start:end])
	}
	return groups
}

// SearchOptions adjusts SearchObjects. Query is a raw query-string fragment
// searched as-is; Property and Values constrain one property to a set of
// accepted values. Query is mutually exclusive with Property/Values.
type SearchOptions struct {
	Query    string
	Property string
	Values   []string
}

// SearchObjects queries the search endpoint for objects of one type,
// constrained by a query fragment or by property values, with the response
// limited to the given fields.
//
// Misuse of the options is a programming mistake reported through the error
// return as a ConfigError; provider and transport failures arrive in the
// usual way inside the ObjectsResult.
func (c *Client) SearchObjects(ctx context.Context, objectType string, fields []string, options SearchOptions) (ObjectsResult, error) {
	objectType = strings.TrimSpace(objectType)
	if objectType == "" {
		return ObjectsResult{}, &ConfigError{Reason: "search requires an object type"}
	}

	query := strings.TrimSpace(options.Query)
	property := strings.TrimSpace(options.Property)
	values := make([]string, 0, len(options.Values))
	for _, v := range options.Values {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	if query != "" && (property != "" || len(values) > 0) {
		return ObjectsResult{}, &ConfigError{Reason: "search accepts either a query or property values but not both"}
	}
	if query == "" && (property == "" || len(values) == 0) {
		return ObjectsResult{}, &ConfigError{Reason: "search requires either a query or a property with values"}
	}

	parts := []string{"type=" + url.QueryEscape(objectType)}
	for _, field := range fields {
		parts = append(parts, "field="+url.QueryEscape(field))
	}
	if query != "" {
		parts = append(parts, query)
	}
	for _, value := range values {
		parts = append(parts, url.QueryEscape(property)+"="+url.QueryEscape(value))
	}

	uri := "/search-quick/?" + strings.Join(parts, "&")
	if len(uri) > c.maxURLLength {
		return ObjectsResult{}, &ConfigError{Reason: fmt.Sprintf("search query URI exceeds the %d-character limit", c.maxURLLength)}
	}

	result := c.GetObject(ctx, uri)
	if result.IsErr() {
		return Err[[]DataObject, *ErrorObject](result.UnwrapErr()), nil
	}
	return Ok[[]DataObject, *ErrorObject](graphFromObject(result.Unwrap())), nil
}
