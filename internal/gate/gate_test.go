package gate

import (
	"testing"

	"github.com/shopvoice/shopvoice/internal/intent"
)

func mkIntent(name intent.Name, confidence float64, entities map[string]any) intent.Intent {
	if entities == nil {
		entities = map[string]any{}
	}
	return intent.Intent{Name: name, Confidence: confidence, Entities: entities}
}

func TestGate_SwitchLanguageExecutesImmediately(t *testing.T) {
	g := New()
	d := g.Decide(mkIntent(intent.SwitchLanguage, 0.99, nil), "hi")
	if !d.Execute {
		t.Fatal("expected immediate execution")
	}
	if g.State() != Idle {
		t.Fatalf("state = %v, want Idle", g.State())
	}
}

func TestGate_LowConfidenceAsksToRepeat(t *testing.T) {
	g := New()
	d := g.Decide(mkIntent(intent.CheckBalance, 0.4, nil), "en")
	if d.Execute {
		t.Fatal("did not expect execution")
	}
	if d.Reply == "" {
		t.Fatal("expected a repeat-prompt reply")
	}
	if g.State() != Idle {
		t.Fatalf("state = %v, want Idle", g.State())
	}
}

func TestGate_DestructiveIntentRequiresConfirmation(t *testing.T) {
	g := New()
	d := g.Decide(mkIntent(intent.DeleteCustomerData, 0.95, map[string]any{"customer": "Rahul"}), "hi")
	if d.Execute {
		t.Fatal("did not expect immediate execution of a destructive intent")
	}
	if g.State() != AwaitingConfirmation {
		t.Fatalf("state = %v, want AwaitingConfirmation", g.State())
	}
	if g.Pending() == nil {
		t.Fatal("expected a pending intent")
	}
}

func TestGate_LargeAmountRequiresConfirmation(t *testing.T) {
	g := New()
	d := g.Decide(mkIntent(intent.AddCredit, 0.95, map[string]any{"amount": 10000.0}), "en")
	if d.Execute {
		t.Fatal("did not expect immediate execution of a large-amount intent")
	}
	if g.State() != AwaitingConfirmation {
		t.Fatalf("state = %v, want AwaitingConfirmation", g.State())
	}
}

func TestGate_MidConfidenceRequiresConfirmation(t *testing.T) {
	g := New()
	d := g.Decide(mkIntent(intent.CheckBalance, 0.7, nil), "en")
	if d.Execute {
		t.Fatal("did not expect immediate execution of a mid-confidence intent")
	}
	if g.State() != AwaitingConfirmation {
		t.Fatalf("state = %v, want AwaitingConfirmation", g.State())
	}
}

func TestGate_HighConfidenceSmallAmountExecutesImmediately(t *testing.T) {
	g := New()
	d := g.Decide(mkIntent(intent.CheckBalance, 0.95, map[string]any{"amount": 100.0}), "en")
	if !d.Execute {
		t.Fatal("expected immediate execution")
	}
	if g.State() != Idle {
		t.Fatalf("state = %v, want Idle", g.State())
	}
}

func TestGate_ResolveYesExecutesPendingIntent(t *testing.T) {
	g := New()
	g.Decide(mkIntent(intent.CancelInvoice, 0.95, nil), "en")

	d := g.Resolve("yes please")
	if !d.Execute {
		t.Fatal("expected execution on yes")
	}
	if d.Intent.Name != intent.CancelInvoice {
		t.Fatalf("Intent.Name = %v, want CancelInvoice", d.Intent.Name)
	}
	if g.State() != Idle {
		t.Fatalf("state = %v, want Idle", g.State())
	}
	if g.Pending() != nil {
		t.Fatal("expected pending intent to be cleared")
	}
}

func TestGate_ResolveNoClearsAndCancels(t *testing.T) {
	g := New()
	g.Decide(mkIntent(intent.CancelInvoice, 0.95, nil), "en")

	d := g.Resolve("no, stop")
	if d.Execute {
		t.Fatal("did not expect execution on no")
	}
	if d.Reply == "" {
		t.Fatal("expected a cancellation reply")
	}
	if g.State() != Idle {
		t.Fatalf("state = %v, want Idle", g.State())
	}
}

func TestGate_ResolveAmbiguousKeepsPending(t *testing.T) {
	g := New()
	g.Decide(mkIntent(intent.CancelInvoice, 0.95, nil), "en")

	d := g.Resolve("maybe later")
	if d.Execute {
		t.Fatal("did not expect execution on an ambiguous reply")
	}
	if g.State() != AwaitingConfirmation {
		t.Fatalf("state = %v, want AwaitingConfirmation", g.State())
	}
	if g.Pending() == nil {
		t.Fatal("expected pending intent to survive an ambiguous reply")
	}
}

func TestGate_ResolveHindiYesWord(t *testing.T) {
	g := New()
	g.Decide(mkIntent(intent.CancelReminder, 0.95, nil), "hi")

	d := g.Resolve("haan bilkul")
	if !d.Execute {
		t.Fatal("expected execution on a Hindi yes word")
	}
}

func TestGate_ResolveHindiNoWord(t *testing.T) {
	g := New()
	g.Decide(mkIntent(intent.CancelReminder, 0.95, nil), "hi")

	d := g.Resolve("nahi, band karo")
	if d.Execute {
		t.Fatal("did not expect execution on a Hindi no word")
	}
}
