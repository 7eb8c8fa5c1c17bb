// Package apiclient talks to the v1 API on behalf of the admin console.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/reorder"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Code, e.Message)
}

// IsNotFound reports whether the API answered 404.
func IsNotFound(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.Code == http.StatusNotFound
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *cache.Cache
	logger  core.Logger
}

var _ reorder.Persister = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, c *cache.Cache, logger core.Logger, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		cache:   c,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Invalidator drops the cached reads of a reordered scope.
func (c *Client) Invalidator() reorder.Invalidator {
	return course.CacheInvalidator(c.cache)
}

// Login exchanges credentials for a token used by the following calls.
func (c *Client) Login(ctx context.Context, uname, pwd string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": uname, "password": pwd}
	if err := c.do(ctx, http.MethodPost, "/v1/users/login", body, &resp); err != nil {
		return errors.Wrap(err, "logging in")
	}
	c.token = resp.Token
	return nil
}

func (c *Client) Course(ctx context.Context, id string) (course.Course, error) {
	tags := []string{cache.GlobalTag(cache.KindCourses), cache.IDTag(cache.KindCourses, id)}
	return cache.Fetch(c.cache, "course:"+id, tags, func() (course.Course, error) {
		var crs course.Course
		err := c.do(ctx, http.MethodGet, "/v1/courses/"+url.PathEscape(id), nil, &crs)
		return crs, errors.Wrap(err, "getting course")
	})
}

func (c *Client) Section(ctx context.Context, id string) (course.Section, error) {
	tags := []string{cache.GlobalTag(cache.KindSections), cache.IDTag(cache.KindSections, id)}
	return cache.Fetch(c.cache, "section:"+id, tags, func() (course.Section, error) {
		var s course.Section
		err := c.do(ctx, http.MethodGet, "/v1/sections/"+url.PathEscape(id), nil, &s)
		return s, errors.Wrap(err, "getting section")
	})
}

// Sections returns the sections of a course in their order.
func (c *Client) Sections(ctx context.Context, courseID string) ([]course.Section, error) {
	tags := course.ScopeTags(course.SectionScope(courseID))
	return cache.Fetch(c.cache, "sections:"+courseID, tags, func() ([]course.Section, error) {
		var sections []course.Section
		err := c.do(ctx, http.MethodGet, "/v1/courses/"+url.PathEscape(courseID)+"/sections", nil, &sections)
		return sections, errors.Wrap(err, "querying sections")
	})
}

// Lessons returns the lessons of a section in their order.
func (c *Client) Lessons(ctx context.Context, sectionID string) ([]course.Lesson, error) {
	tags := course.ScopeTags(course.LessonScope(sectionID))
	return cache.Fetch(c.cache, "lessons:"+sectionID, tags, func() ([]course.Lesson, error) {
		var lessons []course.Lesson
		err := c.do(ctx, http.MethodGet, "/v1/sections/"+url.PathEscape(sectionID)+"/lessons", nil, &lessons)
		return lessons, errors.Wrap(err, "querying lessons")
	})
}

// SetFullOrder writes ids as the order of scope. The API's message is kept on
// rejections; transport failures get the generic failure message.
func (c *Client) SetFullOrder(ctx context.Context, scope reorder.Scope, ids []string) reorder.Outcome {
	var path string
	switch scope.Kind {
	case course.ScopeSections:
		path = "/v1/courses/" + url.PathEscape(scope.ParentID) + "/sections/order"
	case course.ScopeLessons:
		path = "/v1/sections/" + url.PathEscape(scope.ParentID) + "/lessons/order"
	default:
		c.logger.Error("unknown reorder scope", map[string]interface{}{"scope": scope.String()})
		return reorder.Failure(course.ReorderFailure(scope.Kind))
	}

	var resp struct {
		Success string `json:"success"`
	}
	err := c.do(ctx, http.MethodPut, path, course.SetOrder{IDs: ids}, &resp)
	if err == nil {
		return reorder.Success(resp.Success)
	}
	if apiErr, ok := errors.Cause(err).(*APIError); ok && apiErr.Code < http.StatusInternalServerError && apiErr.Message != "" {
		return reorder.Failure(apiErr.Message)
	}
	c.logger.Error("setting full order", errors.Wrap(err, scope.String()))
	return reorder.Failure(course.ReorderFailure(scope.Kind))
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return errorFromResponse(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding response")
}

// errorFromResponse reads {"error": "..."} bodies; field maps are flattened.
func errorFromResponse(res *http.Response) error {
	apiErr := &APIError{Code: res.StatusCode}
	var raw map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&raw); err == nil {
		if msg, ok := raw["error"].(string); ok {
			apiErr.Message = msg
		} else {
			parts := make([]string, 0, len(raw))
			for fld, msg := range raw {
				parts = append(parts, fmt.Sprintf("%s: %v", fld, msg))
			}
			apiErr.Message = strings.Join(parts, "; ")
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode)
	}
	return apiErr
}
