package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasklist/model"
)

const dueDateLayout = "2006-01-02"

// apiID accepts both JSON numbers and strings; the API uses numeric ids, the
// model keeps them as decimal strings.
type apiID string

func (i *apiID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = apiID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*i = apiID(n.String())
	return nil
}

type listDTO struct {
	ID        apiID  `json:"id"`
	Name      string `json:"name"`
	TaskCount int    `json:"taskCount"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (d listDTO) toModel() model.List {
	l := model.List{
		ID:        string(d.ID),
		Name:      d.Name,
		CreatedAt: parseTime(d.CreatedAt),
		TaskIDs:   []string{},
	}
	if t := parseTime(d.UpdatedAt); !t.IsZero() {
		l.UpdatedAt = &t
		if l.CreatedAt.IsZero() {
			l.CreatedAt = t
		}
	}
	return l
}

type taskDTO struct {
	ID          apiID  `json:"id"`
	ListID      apiID  `json:"listId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
	DueDate     string `json:"dueDate"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (d taskDTO) toModel(listID string) model.Task {
	t := model.Task{
		ID:          string(d.ID),
		ListID:      listID,
		Title:       d.Title,
		Description: d.Description,
		Done:        d.Done,
		CreatedAt:   parseTime(d.CreatedAt),
	}
	if d.ListID != "" && listID == "" {
		t.ListID = string(d.ListID)
	}
	if u := parseTime(d.UpdatedAt); !u.IsZero() {
		t.UpdatedAt = &u
	}
	if due := parseTime(d.DueDate); !due.IsZero() {
		t.DueDate = &due
	}
	return t
}

type userDTO struct {
	ID       apiID  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

func (d userDTO) toModel(username string, now time.Time) model.User {
	u := model.User{
		ID:       string(d.ID),
		Username: d.Username,
		Name:     d.Name,
		Email:    d.Email,
		LoggedAt: now,
	}
	if u.Username == "" {
		u.Username = username
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	return u
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type errorDTO struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// parseTime accepts the zoned and zone-less ISO forms the API emits, plus
// plain dates. Zone-less values are read as local time.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02 15:04:05", dueDateLayout} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatDueDate(t time.Time) string {
	return t.Format(dueDateLayout)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
