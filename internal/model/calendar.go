package model

// Holiday marks a calendar date on which no sessions are generated and
// no bookings are accepted.
type Holiday struct {
	ID   uint64 // holidays.id
	Day  string // holidays.day ("2006-01-02")
	Name string // holidays.name
}

// SessionTemplate is a recurring time-slot definition used by the
// session generator.  One template produces at most one session per
// matching weekday per pool; generation is idempotent.
//
// Fields:
//  ID        – primary key identifier.
//  PoolID    – pool the template applies to.
//  Weekday   – 0 (Sunday) through 6 (Saturday), matching time.Weekday.
//  StartTime – slot start ("15:04", UTC).
//  EndTime   – slot end ("15:04", UTC).
//  Capacity  – capacity assigned to generated sessions.
//  IsActive  – inactive templates are skipped by the generator.
type SessionTemplate struct {
	ID        uint64 // session_templates.id
	PoolID    uint64 // session_templates.pool_id
	Weekday   int    // session_templates.weekday
	StartTime string // session_templates.start_time
	EndTime   string // session_templates.end_time
	Capacity  int    // session_templates.capacity
	IsActive  bool   // session_templates.is_active
}

// EducationWindow marks a recurring weekday time range reserved for
// swim-education sessions.  A generated slot that falls entirely inside
// an active window is flagged as an education session.  Changing a
// window never retroactively alters sessions that were already
// materialized.
type EducationWindow struct {
	ID        uint64 // education_windows.id
	Weekday   int    // education_windows.weekday
	StartTime string // education_windows.start_time
	EndTime   string // education_windows.end_time
	IsActive  bool   // education_windows.is_active
}
