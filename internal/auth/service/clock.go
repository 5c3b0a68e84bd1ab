package service

import "time"

// nowFrom returns now() when set, else the wall clock in UTC.
func nowFrom(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}
