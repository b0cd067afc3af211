package lib

import (
	"testing"
)

func TestSeqIncrement(t *testing.T) {
	testCases := []struct {
		seq      uint32
		inc      uint32
		expected uint32
	}{
		{seq: 10, inc: 1, expected: 11},
		{seq: 4294967295, inc: 1, expected: 0},          // Wrap-around case
		{seq: 4294967290, inc: 10, expected: 4},         // Wrap-around by more than one
		{seq: 2147483647, inc: 1, expected: 2147483648}, // Across the sign boundary
		{seq: 0, inc: 0, expected: 0},
	}

	for _, tc := range testCases {
		result := SeqIncrementBy(tc.seq, tc.inc)
		if result != tc.expected {
			t.Errorf("For (%d + %d), expected %d, but got %d", tc.seq, tc.inc, tc.expected, result)
		}
		if tc.inc == 1 && SeqIncrement(tc.seq) != tc.expected {
			t.Errorf("SeqIncrement(%d) = %d, expected %d", tc.seq, SeqIncrement(tc.seq), tc.expected)
		}
	}
}
