package enums

import "testing"

func TestParsePaymentStatus(t *testing.T) {
	got, err := ParsePaymentStatus("paid")
	if err != nil || got != PaymentStatusPaid {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
	if _, err := ParsePaymentStatus("settled"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestOutboxEnums(t *testing.T) {
	if !EventOrderPaymentFailed.IsValid() {
		t.Fatal("expected order_payment_failed to be valid")
	}
	if OutboxEventType("gift_card_issued").IsValid() {
		t.Fatal("expected unknown event to be invalid")
	}
	if _, err := ParseOutboxAggregateType("order"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if RoleCustomer.IsValid() != true {
		t.Fatal("customer should be valid")
	}
	if _, err := ParseRole("agent"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}
