package detect

import "testing"

func TestOptOutMatchesPhrases(t *testing.T) {
	cases := []string{
		"Please stop calling me",
		"Take me off your list",
		"Don't call this number again",
		"Remove me from your list",
		"stop.",
	}
	for _, c := range cases {
		if !OptOut(c) {
			t.Errorf("expected OptOut(%q) = true", c)
		}
	}
	if OptOut("I'll stop by later") {
		t.Error("did not expect OptOut to match unrelated 'stop by'")
	}
}

func TestGatekeeper(t *testing.T) {
	if !Gatekeeper("Who's calling, please?") {
		t.Error("expected gatekeeper match")
	}
	if Gatekeeper("Sure, I have some time") {
		t.Error("did not expect gatekeeper match")
	}
}

func TestGatekeeperNavigated(t *testing.T) {
	if !GatekeeperNavigated("Hi, this is Jane speaking", "Jane") {
		t.Error("expected navigation match")
	}
	if GatekeeperNavigated("Hi there", "Jane") {
		t.Error("did not expect match without name")
	}
}

func TestCallbackCapturesTimeAnchor(t *testing.T) {
	requested, timeText := Callback("Can you call me back tomorrow morning?")
	if !requested {
		t.Fatal("expected callback requested")
	}
	if timeText == "" {
		t.Fatal("expected a captured time anchor")
	}
}

func TestCallbackWithoutTimeAnchor(t *testing.T) {
	requested, timeText := Callback("It's a bad time right now")
	if !requested {
		t.Fatal("expected callback requested")
	}
	if timeText != "" {
		t.Fatalf("expected no time anchor, got %q", timeText)
	}
}

func TestObjection(t *testing.T) {
	if !Objection("Sorry, not interested") {
		t.Error("expected objection match")
	}
	if Objection("Sounds great, let's talk more") {
		t.Error("did not expect objection match")
	}
}

func TestBANTIndependentChannels(t *testing.T) {
	budget, authority, need, timeline := BANT("I'm the decision maker and we need this by next month, but budget is tight")
	if !budget || !authority || !need || !timeline {
		t.Fatalf("expected all four channels true, got budget=%v authority=%v need=%v timeline=%v", budget, authority, need, timeline)
	}
}

func TestMeetingBookedRequiresAllThreeGates(t *testing.T) {
	assistant := "Perfect, I've got you down for Tuesday at 2 PM — I'll send a calendar invite."
	user := "Sounds good."
	if !MeetingBooked(assistant, user) {
		t.Fatal("expected meeting booked to fire")
	}
}

func TestMeetingBookedMissingDayDoesNotFire(t *testing.T) {
	assistant := "Great, I've got you down at 2 PM, I'll send a calendar invite."
	user := "Sounds good."
	if MeetingBooked(assistant, user) {
		t.Fatal("expected meeting booked not to fire without a day anchor")
	}
}

func TestMeetingBookedMissingConfirmationDoesNotFire(t *testing.T) {
	assistant := "I've got you down for Tuesday at 2 PM, I'll send a calendar invite."
	user := "Let me think about it."
	if MeetingBooked(assistant, user) {
		t.Fatal("expected meeting booked not to fire without a confirmation phrase")
	}
}
