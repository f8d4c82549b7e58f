package model

// StatusFilter selects which schedules the planner surfaces.
type StatusFilter string

const (
	FilterAll         StatusFilter = "all"
	FilterAllocated   StatusFilter = "allocated"
	FilterUnallocated StatusFilter = "unallocated"
)

func (f StatusFilter) IsValid() bool {
	return f == FilterAll || f == FilterAllocated || f == FilterUnallocated
}

// Employee represents a care worker who can be assigned to a schedule
type Employee struct {
	ID        string
	FirstName string
	LastName  string
}

func (e Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// ServiceUser represents the care recipient a schedule is for
type ServiceUser struct {
	ID        string
	FirstName string
	LastName  string
}

func (s ServiceUser) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Schedule represents one care visit on the planner timeline.
// StartTime and EndTime are 24-hour "HH:MM" strings on the same day;
// the end must be strictly after the start.
type Schedule struct {
	ID          string
	Date        string // "2006-01-02"
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
	Employee    *Employee // nil when unallocated
	ServiceUser *ServiceUser
	ServiceType string
	Branch      string
	Area        string
	Notes       string
	Cancelled   bool
}

// Allocated reports whether the schedule has an assigned employee
func (s Schedule) Allocated() bool {
	return s.Employee != nil
}

// DayKey returns the key identifying the timeline row this schedule belongs to
func (s Schedule) DayKey() string {
	return s.Date
}
