package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voice-tasks/internal/domain"
	"voice-tasks/internal/infra/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	return string(body)
}

func expectLine(t *testing.T, out, line string) {
	t.Helper()
	for _, l := range strings.Split(out, "\n") {
		if l == line {
			return
		}
	}
	t.Errorf("metrics output has no line %q", line)
}

func TestMetrics_FollowsInteraction(t *testing.T) {
	m := metrics.New()
	start := time.Now()

	m.OnStateChange(domain.StateChange{InteractionID: "a", To: domain.StateAwaitingSpeech, At: start})
	expectLine(t, scrape(t, m), "voice_tasks_interaction_active 1")

	m.OnStateChange(domain.StateChange{InteractionID: "a", To: domain.StateFailed, At: start.Add(3 * time.Second), Detail: "empty_speech"})
	m.OnStateChange(domain.StateChange{InteractionID: "a", To: domain.StateIdle, At: start.Add(3 * time.Second)})

	out := scrape(t, m)
	expectLine(t, out, `voice_tasks_interactions_total{state="failed"} 1`)
	expectLine(t, out, `voice_tasks_interaction_failures_total{kind="empty_speech"} 1`)
	expectLine(t, out, "voice_tasks_interaction_active 0")
	expectLine(t, out, `voice_tasks_state_transitions_total{state="idle"} 1`)
	expectLine(t, out, "voice_tasks_interaction_duration_seconds_count 1")
}

func TestMetrics_RecordPublish(t *testing.T) {
	m := metrics.New()

	m.RecordPublish("voice-tasks.outcomes", nil, time.Millisecond)
	m.RecordPublish("voice-tasks.outcomes", errors.New("broker down"), time.Millisecond)

	out := scrape(t, m)
	expectLine(t, out, `voice_tasks_events_published_total{topic="voice-tasks.outcomes"} 2`)
	expectLine(t, out, `voice_tasks_events_publish_errors_total{topic="voice-tasks.outcomes"} 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.RecordRejectedTrigger()

	expectLine(t, scrape(t, a), "voice_tasks_triggers_rejected_total 1")
	expectLine(t, scrape(t, b), "voice_tasks_triggers_rejected_total 0")
}
