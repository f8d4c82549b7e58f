package scheduleclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hwells-dev/careplanner/pkg/core/model"
)

// personRef accepts the backend's two encodings of an assignment: an
// embedded object or a bare id string.
type personRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (p *personRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = personRef{ID: id}
		return nil
	}

	type alias personRef
	var full alias
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	*p = personRef(full)
	return nil
}

// scheduleRecord is the backend's wire representation of a schedule
type scheduleRecord struct {
	ID          string     `json:"id"`
	Date        string     `json:"date"`
	StartTime   string     `json:"startTime"`
	EndTime     string     `json:"endTime"`
	Employee    *personRef `json:"employee,omitempty"`
	ServiceUser *personRef `json:"serviceUser,omitempty"`
	ServiceType string     `json:"serviceType,omitempty"`
	Branch      string     `json:"branch,omitempty"`
	Area        string     `json:"area,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Status      string     `json:"status,omitempty"`
}

const statusCancelled = "cancelled"

func (r scheduleRecord) toModel() model.Schedule {
	s := model.Schedule{
		ID:          r.ID,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		ServiceType: r.ServiceType,
		Branch:      r.Branch,
		Area:        r.Area,
		Notes:       r.Notes,
		Cancelled:   strings.EqualFold(r.Status, statusCancelled),
	}
	if r.Employee != nil {
		s.Employee = &model.Employee{
			ID:        r.Employee.ID,
			FirstName: r.Employee.FirstName,
			LastName:  r.Employee.LastName,
		}
	}
	if r.ServiceUser != nil {
		s.ServiceUser = &model.ServiceUser{
			ID:        r.ServiceUser.ID,
			FirstName: r.ServiceUser.FirstName,
			LastName:  r.ServiceUser.LastName,
		}
	}
	return s
}

func recordFromModel(s model.Schedule) scheduleRecord {
	r := scheduleRecord{
		ID:          s.ID,
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		ServiceType: s.ServiceType,
		Branch:      s.Branch,
		Area:        s.Area,
		Notes:       s.Notes,
	}
	if s.Cancelled {
		r.Status = statusCancelled
	}
	if s.Employee != nil {
		r.Employee = &personRef{ID: s.Employee.ID, FirstName: s.Employee.FirstName, LastName: s.Employee.LastName}
	}
	if s.ServiceUser != nil {
		r.ServiceUser = &personRef{ID: s.ServiceUser.ID, FirstName: s.ServiceUser.FirstName, LastName: s.ServiceUser.LastName}
	}
	return r
}

type listResponse struct {
	Result []scheduleRecord `json:"result"`
	Page   int              `json:"page"`
	Limit  int              `json:"limit"`
	Total  int              `json:"total"`
}

// ListWindow fetches the schedules for an inclusive date window,
// optionally scoped to one service user
func (c *Client) ListWindow(ctx context.Context, start, end time.Time, serviceUserID string, page, limit int) ([]model.Schedule, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("startDate", start.Format("2006-01-02"))
	query.Set("endDate", end.Format("2006-01-02"))
	if serviceUserID != "" {
		query.Set("serviceUserId", serviceUserID)
	}

	req, err := c.newJSONRequest(ctx, http.MethodGet, "/v1/schedules?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var response listResponse
	if err := c.do(req, &response); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	schedules := make([]model.Schedule, 0, len(response.Result))
	for _, record := range response.Result {
		schedules = append(schedules, record.toModel())
	}
	return schedules, nil
}

// PatchTimes issues a partial update of only the time fields for one
// schedule. No response body is required; the optimistic local copy is
// authoritative on success.
func (c *Client) PatchTimes(ctx context.Context, scheduleID, startTime, endTime string) error {
	body := map[string]string{
		"startTime": startTime,
		"endTime":   endTime,
	}

	req, err := c.newJSONRequest(ctx, http.MethodPatch, "/v1/schedules/"+url.PathEscape(scheduleID), body)
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to patch schedule %s: %w", scheduleID, err)
	}
	return nil
}

// Create registers a new ad-hoc schedule and returns its id. An empty id
// in the response means the backend accepted the client-supplied one.
func (c *Client) Create(ctx context.Context, s model.Schedule) (string, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/v1/schedules", recordFromModel(s))
	if err != nil {
		return "", err
	}

	var response struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &response); err != nil {
		return "", fmt.Errorf("failed to create schedule: %w", err)
	}
	return response.ID, nil
}
