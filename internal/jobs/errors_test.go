package jobs

import "testing"

func TestFailureCode(t *testing.T) {
	cases := []struct {
		stage   string
		message string
		want    string
	}{
		{"queue", "job queue is full", ErrorCodeQueueFull},
		{"store", "store artifact: bucket unreachable", ErrorCodeStorage},
		{"analyze", "extract jd hints: context deadline exceeded", ErrorCodeLLMTimeout},
		{"summary", "decode response: invalid character 'x'", ErrorCodeLLMBadOutput},
		{"experience", "context deadline exceeded", ErrorCodeLLMTimeout},
		{"render", "render document: unknown format", ErrorCodeInternal},
		{"panic", "pipeline panic: boom", ErrorCodeInternal},
	}
	for _, tc := range cases {
		job := ResumeJob{ErrorStage: tc.stage, ErrorMessage: tc.message}
		if got := FailureCode(job); got != tc.want {
			t.Fatalf("FailureCode(%s, %q) = %s, want %s", tc.stage, tc.message, got, tc.want)
		}
	}
}
