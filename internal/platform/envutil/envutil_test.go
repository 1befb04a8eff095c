package envutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{"unset", "", 3 * time.Second},
		{"go syntax", "250ms", 250 * time.Millisecond},
		{"bare seconds", "2", 2 * time.Second},
		{"fractional seconds", "0.5", 500 * time.Millisecond},
		{"garbage", "soon", 3 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("COOKGPT_TEST_DURATION", tc.raw)
			assert.Equal(t, tc.want, Duration("COOKGPT_TEST_DURATION", 3*time.Second, nil))
		})
	}
}

func TestIntAndBool(t *testing.T) {
	t.Setenv("COOKGPT_TEST_INT", "42")
	t.Setenv("COOKGPT_TEST_BAD_INT", "x")
	t.Setenv("COOKGPT_TEST_BOOL", "yes")

	assert.Equal(t, 42, Int("COOKGPT_TEST_INT", 1, nil))
	assert.Equal(t, 1, Int("COOKGPT_TEST_BAD_INT", 1, nil))
	assert.True(t, Bool("COOKGPT_TEST_BOOL", false, nil))
	assert.False(t, Bool("COOKGPT_TEST_UNSET_BOOL", false, nil))
	assert.Equal(t, "dflt", String("COOKGPT_TEST_UNSET", "dflt", nil))
}

func TestFloatAndList(t *testing.T) {
	t.Setenv("COOKGPT_TEST_FLOAT", "0.25")
	t.Setenv("COOKGPT_TEST_LIST", " https://a.example, ,https://b.example ")

	assert.InDelta(t, 0.25, Float("COOKGPT_TEST_FLOAT", 1, nil), 1e-9)
	assert.InDelta(t, 1.0, Float("COOKGPT_TEST_UNSET_FLOAT", 1, nil), 1e-9)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, List("COOKGPT_TEST_LIST", nil))
	assert.Empty(t, List("COOKGPT_TEST_UNSET_LIST", nil))
}
