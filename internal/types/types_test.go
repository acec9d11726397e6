package types

import "testing"

func TestDiskRecordDropsVClockAndState(t *testing.T) {
	req := Request{
		Term:         7,
		Vote:         "peer-a",
		Leader:       "peer-b",
		IsLeaderSeen: true,
		State:        StateLeader,
		VClock:       VClock{"peer-a": 1, "peer-b": 2},
	}

	rec := req.ToDiskRecord()
	back := rec.ToRequest()

	if back.State != StateNone {
		t.Fatalf("expected State=StateNone after disk round-trip, got %v", back.State)
	}
	if back.VClock != nil {
		t.Fatalf("expected VClock=nil after disk round-trip, got %v", back.VClock)
	}
	if back.Term != req.Term || back.Vote != req.Vote || back.Leader != req.Leader || back.IsLeaderSeen != req.IsLeaderSeen {
		t.Fatalf("expected the other four fields to survive the round-trip unchanged, got %+v", back)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateNone:      "none",
		StateFollower:  "follower",
		StateCandidate: "candidate",
		StateLeader:    "leader",
		State(99):      "none",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
