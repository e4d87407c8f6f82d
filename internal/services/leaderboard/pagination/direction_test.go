package pagination

import "testing"

func TestDetectDirection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		currentPage  int
		lastAccessed int
		totalPages   int
		want         Direction
	}{
		{name: "page one is always a jump to start", currentPage: 1, lastAccessed: 7, totalPages: 10, want: DirectionJumpToStart},
		{name: "page one without history", currentPage: 1, lastAccessed: 0, totalPages: 10, want: DirectionJumpToStart},
		{name: "final page is a jump to end", currentPage: 10, lastAccessed: 2, totalPages: 10, want: DirectionJumpToEnd},
		{name: "final page without history", currentPage: 10, lastAccessed: 0, totalPages: 10, want: DirectionJumpToEnd},
		{name: "cold context defaults forward", currentPage: 5, lastAccessed: 0, totalPages: 10, want: DirectionForward},
		{name: "moving to a later page", currentPage: 5, lastAccessed: 3, totalPages: 10, want: DirectionForward},
		{name: "moving to an earlier page", currentPage: 3, lastAccessed: 5, totalPages: 10, want: DirectionBackward},
		{name: "repeated page counts as forward", currentPage: 5, lastAccessed: 5, totalPages: 10, want: DirectionForward},
		{name: "single-page board", currentPage: 1, lastAccessed: 1, totalPages: 1, want: DirectionJumpToStart},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := DetectDirection(tc.currentPage, tc.lastAccessed, tc.totalPages)
			if got != tc.want {
				t.Fatalf("detect(%d, %d, %d) = %v, want %v",
					tc.currentPage, tc.lastAccessed, tc.totalPages, got, tc.want)
			}
		})
	}
}

func TestDirectionString(t *testing.T) {
	t.Parallel()

	if got := DirectionBackward.String(); got != "backward" {
		t.Fatalf("backward string = %q", got)
	}
	if got := DirectionJumpToEnd.String(); got != "jump_to_end" {
		t.Fatalf("jump to end string = %q", got)
	}
}
