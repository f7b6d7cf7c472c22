package classify

import (
	"errors"
	"testing"
	"time"

	"triagebot/internal/domain"
)

type fakeLookup struct {
	count    int
	userSent bool
	err      error
}

func (f fakeLookup) CountRecent(conversationID string, since time.Time) (int, error) {
	return f.count, f.err
}

func (f fakeLookup) UserHasSent(conversationID, userAddress string) (bool, error) {
	return f.userSent, f.err
}

var overrideUser = User{Address: "mo@corp.example", FirstName: "Mo"}

func TestCheckOverrideOnlyAppliesToOtherCategories(t *testing.T) {
	// An urgent email in a Work category must never override, and the
	// triggers must not even be evaluated.
	e := domain.Email{Subject: "URGENT: server down", FromAddress: "boss@corp.example"}
	for _, cat := range []domain.Category{
		domain.CategoryNone,
		domain.CategoryBlocking,
		domain.CategoryActionRequired,
		domain.CategoryWaitingOn,
		domain.CategoryTimeSensitive,
		domain.CategoryFYI,
	} {
		got := CheckOverride(e, cat, overrideUser, nil, DefaultRules())
		if got.Override {
			t.Fatalf("category %d: override = true, want false", cat)
		}
		if got.Trigger != "" {
			t.Fatalf("category %d: trigger %q set without evaluation", cat, got.Trigger)
		}
	}
}

func TestCheckOverrideUrgencyLanguage(t *testing.T) {
	e := domain.Email{
		FromAddress: "newsletter@vendor.example",
		Subject:     "Renewal notice",
		Body:        "Your contract needs your approval before Friday.",
	}
	got := CheckOverride(e, domain.CategoryMarketing, overrideUser, nil, DefaultRules())
	if !got.Override || got.Trigger != domain.TriggerUrgencyLanguage {
		t.Fatalf("got %+v, want urgency_language override", got)
	}
}

func TestCheckOverrideVIPSender(t *testing.T) {
	rules := DefaultRules()
	rules.AddVIPs([]string{"ceo@corp.example"}, []string{"keyclient.example"})

	e := domain.Email{FromAddress: "CEO@corp.example", Subject: "FYI"}
	got := CheckOverride(e, domain.CategoryNotification, overrideUser, nil, rules)
	if !got.Override || got.Trigger != domain.TriggerVIPSender {
		t.Fatalf("vip sender: got %+v", got)
	}

	e = domain.Email{FromAddress: "anyone@keyclient.example", Subject: "FYI"}
	got = CheckOverride(e, domain.CategoryNotification, overrideUser, nil, rules)
	if !got.Override || got.Trigger != domain.TriggerVIPSender {
		t.Fatalf("vip domain: got %+v", got)
	}
}

func TestCheckOverrideSoleRecipientFYIMismatch(t *testing.T) {
	e := domain.Email{
		FromAddress:  "colleague@corp.example",
		Subject:      "Notes",
		ToRecipients: []domain.Recipient{{Address: overrideUser.Address}},
	}

	got := CheckOverride(e, domain.CategoryGroupFYI, overrideUser, nil, DefaultRules())
	if !got.Override || got.Trigger != domain.TriggerSoleRecipient {
		t.Fatalf("got %+v, want sole_recipient_mismatch", got)
	}

	// The same shape in any other Other category does not trigger.
	got = CheckOverride(e, domain.CategoryMarketing, overrideUser, nil, DefaultRules())
	if got.Override {
		t.Fatalf("marketing category triggered sole-recipient check: %+v", got)
	}
}

func TestCheckOverrideReplyChain(t *testing.T) {
	e := domain.Email{
		FromAddress:    "list@vendor.example",
		Subject:        "Re: rollout plan",
		ConversationID: "conv-1",
	}

	got := CheckOverride(e, domain.CategoryNotification, overrideUser, fakeLookup{userSent: true}, DefaultRules())
	if !got.Override || got.Trigger != domain.TriggerReplyChain {
		t.Fatalf("got %+v, want reply_chain_participation", got)
	}

	got = CheckOverride(e, domain.CategoryNotification, overrideUser, fakeLookup{userSent: false}, DefaultRules())
	if got.Override {
		t.Fatalf("no participation but override = true: %+v", got)
	}

	// A failing lookup degrades to no override rather than erroring.
	got = CheckOverride(e, domain.CategoryNotification, overrideUser, fakeLookup{err: errors.New("db closed")}, DefaultRules())
	if got.Override {
		t.Fatalf("lookup error caused override: %+v", got)
	}

	// Nil lookup skips the trigger entirely.
	got = CheckOverride(e, domain.CategoryNotification, overrideUser, nil, DefaultRules())
	if got.Override {
		t.Fatalf("nil lookup caused override: %+v", got)
	}
}

func TestCheckOverrideDirectAddress(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"name comma request", "Mo, can you take a look at the invoice?", true},
		{"greeting", "Hi Mo, the figures are attached.", true},
		{"dash imperative", "Mo - please confirm receipt.", true},
		{"at mention", "cc @mo for visibility", true},
		{"name without imperative", "Mohammed from accounting sent this.", false},
		{"no name", "Please review when convenient.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := domain.Email{FromAddress: "noreply@vendor.example", Subject: "Statement", Body: tt.body}
			got := CheckOverride(e, domain.CategoryNotification, overrideUser, nil, DefaultRules())
			if got.Override != tt.want {
				t.Fatalf("body %q: override = %v, want %v (%+v)", tt.body, got.Override, tt.want, got)
			}
			if tt.want && got.Trigger != domain.TriggerDirectAddress {
				t.Fatalf("trigger = %q, want direct_address", got.Trigger)
			}
		})
	}
}

func TestCheckOverrideTriggerOrder(t *testing.T) {
	// Urgency language outranks a VIP sender when both apply.
	rules := DefaultRules()
	rules.AddVIPs([]string{"ceo@corp.example"}, nil)

	e := domain.Email{
		FromAddress: "ceo@corp.example",
		Subject:     "urgent question",
	}
	got := CheckOverride(e, domain.CategoryNotification, overrideUser, nil, rules)
	if got.Trigger != domain.TriggerUrgencyLanguage {
		t.Fatalf("trigger = %q, want urgency_language first", got.Trigger)
	}
}
