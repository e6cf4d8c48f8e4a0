package storage

import (
	"fmt"
	"strings"
)

// InvoiceObjectPath composes the object key for a customer's invoice file.
// The layout groups invoices per user so storage rules can scope access by
// the owner's UID.
func InvoiceObjectPath(uid, invoiceNumber string) (string, error) {
	owner, err := validateSegment("uid", uid)
	if err != nil {
		return "", err
	}
	number, err := validateSegment("invoiceNumber", invoiceNumber)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("invoices/%s/%s.pdf", owner, number), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
