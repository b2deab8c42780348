package model

import "testing"

func TestValidTaskStatus(t *testing.T) {
	for _, s := range []string{"pending", "in-progress", "completed"} {
		if !ValidTaskStatus(s) {
			t.Errorf("%q must be valid", s)
		}
	}
	for _, s := range []string{"", "done", "Pending", "archived"} {
		if ValidTaskStatus(s) {
			t.Errorf("%q must be invalid", s)
		}
	}
}

func TestValidProjectStatus(t *testing.T) {
	for _, s := range []string{"active", "on-hold", "completed"} {
		if !ValidProjectStatus(s) {
			t.Errorf("%q must be valid", s)
		}
	}
	for _, s := range []string{"", "paused", "Active"} {
		if ValidProjectStatus(s) {
			t.Errorf("%q must be invalid", s)
		}
	}
}
