package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"enrollment-gateway/internal/domain/courses"

	"github.com/pkg/errors"
)

func (c *Client) GetCourse(ctx context.Context, id courses.RefID) (*courses.Course, error) {
	var raw json.RawMessage
	path := "/courses/" + url.PathEscape(string(id))
	if err := c.do(ctx, c.newRequest(http.MethodGet, path, nil), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "course %s", id)
	}

	var course courses.Course
	if err := json.Unmarshal(unwrapKey(raw, "course"), &course); err != nil {
		return nil, errors.Wrapf(err, "decode course %s", id)
	}
	if course.ID == "" {
		course.ID = id
	}
	return &course, nil
}

func (c *Client) ListCourses(ctx context.Context) ([]courses.Course, error) {
	var raw json.RawMessage
	if err := c.do(ctx, c.newRequest(http.MethodGet, "/courses", nil), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var list []courses.Course
	if err := json.Unmarshal(unwrapKey(raw, "courses"), &list); err != nil {
		return nil, errors.Wrap(err, "decode courses")
	}
	return list, nil
}
