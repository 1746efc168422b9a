package domain

import (
	"errors"
	"testing"
)

func TestBookingStatus_Next(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    BookingStatus
		event   BookingEvent
		want    BookingStatus
		wantErr bool
	}{
		{BookingStatusPending, BookingEventAccept, BookingStatusAccepted, false},
		{BookingStatusPending, BookingEventReject, BookingStatusRejected, false},
		{BookingStatusPending, BookingEventCancel, BookingStatusCancelled, false},
		{BookingStatusAccepted, BookingEventStart, BookingStatusInProgress, false},
		{BookingStatusAccepted, BookingEventCancel, BookingStatusCancelled, false},
		{BookingStatusInProgress, BookingEventComplete, BookingStatusCompleted, false},
		{BookingStatusPending, BookingEventStart, BookingStatusPending, true},
		{BookingStatusAccepted, BookingEventReject, BookingStatusAccepted, true},
		{BookingStatusInProgress, BookingEventCancel, BookingStatusInProgress, true},
		{BookingStatusRejected, BookingEventAccept, BookingStatusRejected, true},
		{BookingStatusCancelled, BookingEventAccept, BookingStatusCancelled, true},
		{BookingStatusCompleted, BookingEventCancel, BookingStatusCompleted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.event), func(t *testing.T) {
			got, err := tt.from.Next(tt.event)
			if tt.wantErr {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Fatalf("expected ErrIllegalTransition, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBookingStatus_TerminalStates(t *testing.T) {
	t.Parallel()

	terminal := map[BookingStatus]bool{
		BookingStatusPending:    false,
		BookingStatusAccepted:   false,
		BookingStatusInProgress: false,
		BookingStatusRejected:   true,
		BookingStatusCompleted:  true,
		BookingStatusCancelled:  true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

// Every event sequence that ends in completed must be accept, start, complete.
func TestBookingStatus_CompletedOnlyThroughHappyPath(t *testing.T) {
	t.Parallel()

	events := []BookingEvent{
		BookingEventAccept, BookingEventReject, BookingEventCancel, BookingEventStart, BookingEventComplete,
	}

	var walk func(status BookingStatus, path []BookingEvent)
	walk = func(status BookingStatus, path []BookingEvent) {
		if status == BookingStatusCompleted {
			want := []BookingEvent{BookingEventAccept, BookingEventStart, BookingEventComplete}
			if len(path) != len(want) {
				t.Fatalf("completed reached through %v", path)
			}
			for i := range want {
				if path[i] != want[i] {
					t.Fatalf("completed reached through %v", path)
				}
			}
			return
		}
		if len(path) >= 6 {
			return
		}
		for _, ev := range events {
			next, err := status.Next(ev)
			if err != nil {
				continue
			}
			walk(next, append(append([]BookingEvent{}, path...), ev))
		}
	}
	walk(BookingStatusPending, nil)

	for _, terminal := range []BookingStatus{BookingStatusRejected, BookingStatusCancelled} {
		for _, ev := range events {
			if _, err := terminal.Next(ev); err == nil {
				t.Errorf("%s should not accept %s", terminal, ev)
			}
		}
	}
}
