package appointments

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"confirmed to completed", StatusConfirmed, StatusCompleted, true},
		{"confirmed to cancelled", StatusConfirmed, StatusCancelled, true},
		{"completed is terminal", StatusCompleted, StatusConfirmed, false},
		{"completed cannot cancel", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusConfirmed, false},
		{"cancelled cannot complete", StatusCancelled, StatusCompleted, false},
		{"same status is idempotent", StatusCompleted, StatusCompleted, true},
		{"same terminal status is idempotent", StatusCancelled, StatusCancelled, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusConfirmed, StatusCompleted, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Status{"", "confirmed", "PENDING", "DONE"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestBookRequestValidate(t *testing.T) {
	valid := BookRequest{DentistID: "d1", Date: "2026-09-01", TimeLabel: "09:00"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name string
		req  BookRequest
	}{
		{"missing dentist", BookRequest{Date: "2026-09-01", TimeLabel: "09:00"}},
		{"missing date", BookRequest{DentistID: "d1", TimeLabel: "09:00"}},
		{"malformed date", BookRequest{DentistID: "d1", Date: "09/01/2026", TimeLabel: "09:00"}},
		{"missing time", BookRequest{DentistID: "d1", Date: "2026-09-01"}},
		{"whitespace dentist", BookRequest{DentistID: "   ", Date: "2026-09-01", TimeLabel: "09:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); err != ErrInvalidInput {
				t.Errorf("Validate() = %v, want ErrInvalidInput", err)
			}
		})
	}
}
