package metrics

import "testing"

// Counters are process-global, so tests assert deltas rather than absolutes.

func TestAutomationCounters(t *testing.T) {
	e0, m0, x0, f0, by0 := AutomationSnapshot()

	IncRuleEvaluated()
	IncRuleEvaluated()
	IncRuleMatched()
	IncActionExecuted("send_webhook")
	IncActionExecuted("send_webhook")
	IncActionExecuted("create_ticket")
	IncActionFailed()

	e1, m1, x1, f1, by1 := AutomationSnapshot()
	if e1-e0 != 2 {
		t.Errorf("evaluated delta = %d, want 2", e1-e0)
	}
	if m1-m0 != 1 {
		t.Errorf("matched delta = %d, want 1", m1-m0)
	}
	if x1-x0 != 3 {
		t.Errorf("executed delta = %d, want 3", x1-x0)
	}
	if f1-f0 != 1 {
		t.Errorf("failed delta = %d, want 1", f1-f0)
	}
	if by1["send_webhook"]-by0["send_webhook"] != 2 {
		t.Errorf("send_webhook delta = %d, want 2", by1["send_webhook"]-by0["send_webhook"])
	}
	if by1["create_ticket"]-by0["create_ticket"] != 1 {
		t.Errorf("create_ticket delta = %d, want 1", by1["create_ticket"]-by0["create_ticket"])
	}
}

func TestAutomationSnapshotIsACopy(t *testing.T) {
	IncActionExecuted("send_notification")
	_, _, _, _, by := AutomationSnapshot()
	before := by["send_notification"]
	by["send_notification"] = 999999

	_, _, _, _, again := AutomationSnapshot()
	if again["send_notification"] != before {
		t.Error("mutating a snapshot must not affect the live counters")
	}
}

func TestRateLimitCounters(t *testing.T) {
	t0, by0 := RateLimitSnapshot()

	IncRateLimitDrop("api")
	IncRateLimitDrop("api")
	IncRateLimitDrop("") // empty prefix folds into global

	t1, by1 := RateLimitSnapshot()
	if t1-t0 != 3 {
		t.Errorf("total delta = %d, want 3", t1-t0)
	}
	if by1["api"]-by0["api"] != 2 {
		t.Errorf("api delta = %d, want 2", by1["api"]-by0["api"])
	}
	if by1["global"]-by0["global"] != 1 {
		t.Errorf("global delta = %d, want 1", by1["global"]-by0["global"])
	}
}
