package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/raftline/internal/types"
)

func TestCodecRoundTripsAllSixFields(t *testing.T) {
	m := types.Message{
		Term:         9,
		Vote:         "peer-a",
		Leader:       "peer-b",
		IsLeaderSeen: true,
		State:        types.StateCandidate,
		VClock:       types.VClock{"peer-a": 1},
	}

	r := RFromM(m)
	back := MFromR(r)

	assert.Equal(t, m, back)
}
