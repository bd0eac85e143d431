package hysteresis

import "testing"

func TestEvaluate_RuleTable(t *testing.T) {
	tests := []struct {
		name   string
		days   int
		sent30 bool
		sent10 bool
		want   Decision
	}{
		{"above 30 resets both", 45, true, true, Decision{}},
		{"above 30 resets tier30 only", 31, true, false, Decision{}},
		{"above 30 clean stays clean", 90, false, false, Decision{}},
		{"enters tier30", 30, false, false, Decision{AlertSent30: true, Alert: Tier30}},
		{"inside tier30 already sent", 25, true, false, Decision{AlertSent30: true}},
		{"tier30 lower edge", 11, false, false, Decision{AlertSent30: true, Alert: Tier30}},
		{"enters tier10 from tier30", 10, true, false, Decision{AlertSent30: true, AlertSent10: true, Alert: Tier10}},
		{"jumps straight to tier10", 5, false, false, Decision{AlertSent30: true, AlertSent10: true, Alert: Tier10}},
		{"inside tier10 already sent", 3, true, true, Decision{AlertSent30: true, AlertSent10: true}},
		{"expired counts as tier10", 0, true, false, Decision{AlertSent30: true, AlertSent10: true, Alert: Tier10}},
		{"negative days counts as tier10", -4, false, false, Decision{AlertSent30: true, AlertSent10: true, Alert: Tier10}},
		{"tier30 keeps a stray tier10 flag", 20, false, true, Decision{AlertSent30: true, AlertSent10: true, Alert: Tier30}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.days, tc.sent30, tc.sent10)
			if got != tc.want {
				t.Errorf("Evaluate(%d, %v, %v) = %+v, want %+v", tc.days, tc.sent30, tc.sent10, got, tc.want)
			}
		})
	}
}

func TestEvaluate_Tier10ImpliesTier30(t *testing.T) {
	for days := -40; days <= 120; days++ {
		for _, sent30 := range []bool{false, true} {
			for _, sent10 := range []bool{false, true} {
				if sent10 && !sent30 {
					continue // not a reachable input
				}
				d := Evaluate(days, sent30, sent10)
				if d.AlertSent10 && !d.AlertSent30 {
					t.Fatalf("Evaluate(%d, %v, %v) = %+v breaks tier10 => tier30", days, sent30, sent10, d)
				}
				if days > Tier30Days && (d.AlertSent30 || d.AlertSent10) {
					t.Fatalf("Evaluate(%d, ...) kept flags above 30 days: %+v", days, d)
				}
			}
		}
	}
}

func TestEvaluate_DecayThenRenewal(t *testing.T) {
	var sent30, sent10 bool
	var alerts []Alert

	for _, days := range []int{45, 25, 24, 5, 4, 90, 28} {
		d := Evaluate(days, sent30, sent10)
		sent30, sent10 = d.AlertSent30, d.AlertSent10
		if d.Alert != None {
			alerts = append(alerts, d.Alert)
		}
	}

	want := []Alert{Tier30, Tier10, Tier30}
	if len(alerts) != len(want) {
		t.Fatalf("alerts = %v, want %v", alerts, want)
	}
	for i := range want {
		if alerts[i] != want[i] {
			t.Errorf("alerts[%d] = %v, want %v", i, alerts[i], want[i])
		}
	}
}

func TestAlertString(t *testing.T) {
	if None.String() != "none" || Tier30.String() != "tier30" || Tier10.String() != "tier10" {
		t.Errorf("unexpected names: %s %s %s", None, Tier30, Tier10)
	}
}
