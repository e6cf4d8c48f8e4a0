package storage

import "testing"

func TestInvoiceObjectPath(t *testing.T) {
	path, err := InvoiceObjectPath("user123", "FAC-482913")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "invoices/user123/FAC-482913.pdf"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestInvoiceObjectPathRejectsInvalidSegment(t *testing.T) {
	cases := []struct {
		name   string
		uid    string
		number string
	}{
		{"traversal uid", "../bad", "FAC-100000"},
		{"slash in number", "user123", "FAC/100000"},
		{"empty uid", "", "FAC-100000"},
		{"empty number", "user123", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := InvoiceObjectPath(tc.uid, tc.number); err == nil {
				t.Fatalf("expected error for uid=%q number=%q", tc.uid, tc.number)
			}
		})
	}
}
