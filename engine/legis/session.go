package legis

import (
	"fmt"
	"strconv"
	"strings"
)

// Session is a legislative year plus session code (R, S1, S2).
type Session struct {
	Year        int    `json:"year"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (s Session) String() string {
	if s.Description != "" {
		return s.Description
	}
	return fmt.Sprintf("%d %s", s.Year, s.Code)
}

// ParseSession parses "2025", "2025R" or "2025-S1" into a Session.
// A bare year means the regular session.
func ParseSession(s string) (Session, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 4 {
		return Session{}, fmt.Errorf("legis: bad session %q", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Session{}, fmt.Errorf("legis: bad session year %q: %w", s, err)
	}
	code := strings.TrimLeft(s[4:], "- ")
	if code == "" {
		code = "R"
	}
	switch code {
	case "R", "S1", "S2":
	default:
		return Session{}, fmt.Errorf("legis: bad session code %q", code)
	}
	return Session{Year: year, Code: code}, nil
}

// KnownSessions lists every session the index covers, newest first.
var KnownSessions = []Session{
	{2026, "R", "2026 Regular Session"},
	{2025, "S2", "2025 2nd Extraordinary Session"},
	{2025, "S1", "2025 1st Extraordinary Session"},
	{2025, "R", "2025 Regular Session"},
	{2024, "R", "2024 Regular Session"},
	{2023, "R", "2023 Regular Session"},
	{2022, "S1", "2022 1st Extraordinary Session"},
	{2022, "R", "2022 Regular Session"},
	{2021, "S1", "2021 1st Extraordinary Session"},
	{2021, "R", "2021 Regular Session"},
	{2020, "S2", "2020 2nd Extraordinary Session"},
	{2020, "S1", "2020 1st Extraordinary Session"},
	{2020, "R", "2020 Regular Session"},
	{2019, "S1", "2019 1st Extraordinary Session"},
	{2019, "R", "2019 Regular Session"},
	{2018, "S2", "2018 1st Extraordinary Session"},
	{2018, "S1", "2018 Special Session"},
	{2018, "R", "2018 Regular Session"},
	{2017, "S2", "2017 2nd Extraordinary Session"},
	{2017, "S1", "2017 Extraordinary Session"},
	{2017, "R", "2017 Regular Session"},
	{2016, "R", "2016 Regular Session"},
	{2015, "R", "2015 Regular Session"},
	{2014, "R", "2014 Regular Session"},
	{2013, "S1", "2013 Extraordinary Session"},
	{2013, "R", "2013 Regular Session"},
	{2012, "R", "2012 Regular Session"},
	{2011, "S1", "2011 Extraordinary Session"},
	{2011, "R", "2011 Regular Session"},
	{2010, "S1", "2010 Extraordinary Session"},
	{2010, "R", "2010 Regular Session"},
	{2009, "R", "2009 Regular Session"},
	{2008, "R", "2008 Regular Session"},
	{2007, "S1", "2007 Extraordinary Session"},
	{2007, "R", "2007 Regular Session"},
	{2006, "R", "2006 Regular Session"},
	{2005, "S1", "2005 Extraordinary Session"},
	{2005, "R", "2005 Regular Session"},
	{2004, "R", "2004 Regular Session"},
	{2003, "S2", "2003 2nd Extraordinary Session"},
	{2003, "S1", "2003 1st Extraordinary Session"},
	{2003, "R", "2003 Regular Session"},
	{2002, "R", "2002 Regular Session"},
	{2001, "S1", "2001 Extraordinary Session"},
	{2001, "R", "2001 Regular Session"},
	{2000, "R", "2000 Regular Session"},
}
