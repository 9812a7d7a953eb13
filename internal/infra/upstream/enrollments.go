package upstream

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/tiers"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Receipt is the proof of payment uploaded with an enrollment.
type Receipt struct {
	Filename string
	Data     []byte
}

// IdempotencyKey fingerprints one submission so a resend of the same
// receipt for the same course and tier is recognisable.
func (r Receipt) IdempotencyKey(courseID courses.RefID, tier tiers.Tier) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(courseID))
	h.Write([]byte{0})
	h.Write([]byte(tier))
	h.Write([]byte{0})
	h.Write(r.Data)
	return hex.EncodeToString(h.Sum(nil))
}

var jsonNull = []byte("null")

// decodeEnrollment accepts {"enrollment": {...}}, a bare record, or an
// empty answer. Anything without an enrollment decodes to nil.
func decodeEnrollment(raw json.RawMessage) (*enrollment.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Wrap(err, "decode enrollment")
	}
	if inner, ok := obj["enrollment"]; ok {
		raw = bytes.TrimSpace(inner)
		if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
			return nil, nil
		}
	} else if _, ok := obj["status"]; !ok {
		return nil, nil
	}

	var rec enrollment.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, "decode enrollment")
	}
	return &rec, nil
}

// GetEnrollment returns nil when the caller has no enrollment for the course.
func (c *Client) GetEnrollment(ctx context.Context, courseID courses.RefID) (*enrollment.Record, error) {
	var raw json.RawMessage
	path := "/courses/" + url.PathEscape(string(courseID)) + "/enrollment"
	err := c.do(ctx, c.newRequest(http.MethodGet, path, nil), &raw)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := decodeEnrollment(raw)
	if err != nil || rec == nil {
		return rec, err
	}
	if rec.CourseID == "" {
		rec.CourseID = courseID
	}
	return rec, nil
}

// Enroll uploads the receipt for tier. The platform records the enrollment
// as pending until an admin reviews it.
func (c *Client) Enroll(ctx context.Context, courseID courses.RefID, tier tiers.Tier, receipt Receipt) (*enrollment.Record, error) {
	path := "/courses/" + url.PathEscape(string(courseID)) + "/enroll"
	key := receipt.IdempotencyKey(courseID, tier)

	body := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("package", string(tier)); err != nil {
			return nil, "", errors.Wrap(err, "write package field")
		}
		part, err := w.CreateFormFile("receipt", receipt.Filename)
		if err != nil {
			return nil, "", errors.Wrap(err, "create receipt part")
		}
		if _, err := part.Write(receipt.Data); err != nil {
			return nil, "", errors.Wrap(err, "write receipt")
		}
		if err := w.Close(); err != nil {
			return nil, "", errors.Wrap(err, "close multipart")
		}
		return &buf, w.FormDataContentType(), nil
	}
	base := c.newRequest(http.MethodPost, path, body)
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := base(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Idempotency-Key", key)
		return req, nil
	}

	var raw json.RawMessage
	if err := c.do(ctx, build, &raw); err != nil {
		return nil, err
	}

	rec, err := decodeEnrollment(raw)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &enrollment.Record{Package: string(tier), Status: string(enrollment.StatusPending)}
	}
	if rec.CourseID == "" {
		rec.CourseID = courseID
	}
	return rec, nil
}

func (c *Client) ApproveEnrollment(ctx context.Context, id courses.RefID) (*enrollment.Record, error) {
	path := "/admin/enrollments/" + url.PathEscape(string(id)) + "/approve"
	var raw json.RawMessage
	if err := c.do(ctx, c.newRequest(http.MethodPost, path, nil), &raw); err != nil {
		return nil, err
	}
	return decodeEnrollment(raw)
}

func (c *Client) RejectEnrollment(ctx context.Context, id courses.RefID, reason string) (*enrollment.Record, error) {
	path := "/admin/enrollments/" + url.PathEscape(string(id)) + "/reject"
	var raw json.RawMessage
	body := jsonBody(map[string]string{"rejection_reason": reason})
	if err := c.do(ctx, c.newRequest(http.MethodPost, path, body), &raw); err != nil {
		return nil, err
	}
	return decodeEnrollment(raw)
}
